// Package session turns credentials into a sealed session cookie and checks
// that cookie on every protected request.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"chatroom/internal/auth"
	"chatroom/internal/model"
	"chatroom/internal/store"
)

type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	CreateUserAndSession(ctx context.Context, user model.NewUser, csrfToken, sessionID string) (string, error)
	ReplaceSessionForUser(ctx context.Context, userID int64, csrfToken, sessionID string) (string, error)
	FindSessionByID(ctx context.Context, id string) (model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, candidate string) bool
}

type TokenIssuer interface {
	IssuePair(ttl time.Duration) (auth.TokenPair, error)
	VerifyCookie(cookie string) error
	VerifyPair(token, cookie string) error
}

// Context describes the authenticated session behind a request.
type Context struct {
	SessionID string
	UserID    int64
	CSRFToken string
}

type Manager struct {
	store  CredentialStore
	hasher PasswordHasher
	tokens TokenIssuer
	ttl    time.Duration

	// decoy is verified against when the email is unknown so both login
	// failures cost one argon2 evaluation.
	decoy string
}

func NewManager(st CredentialStore, hasher PasswordHasher, tokens TokenIssuer, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	decoy, err := hasher.Hash("decoy password")
	if err != nil {
		return nil, fmt.Errorf("decoy hash: %w", err)
	}
	return &Manager{store: st, hasher: hasher, tokens: tokens, ttl: ttl, decoy: decoy}, nil
}

// Login verifies the credentials and replaces whatever session the user had.
// Unknown email and wrong password are both NotFound.
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", newError(BadRequest, errors.New("email and password are required"))
	}

	user, err := m.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.hasher.Verify(m.decoy, password)
			return "", newError(NotFound, err)
		}
		return "", newError(Internal, err)
	}
	if !m.hasher.Verify(user.PasswordHash, password) {
		return "", newError(NotFound, errors.New("password mismatch"))
	}

	pair, err := m.tokens.IssuePair(m.ttl)
	if err != nil {
		return "", newError(Internal, err)
	}
	id, err := m.store.ReplaceSessionForUser(ctx, user.ID, pair.Token, pair.Cookie)
	if err != nil {
		return "", newError(Internal, err)
	}
	return id, nil
}

// Signup creates the user and its first session atomically.
func (m *Manager) Signup(ctx context.Context, handle, email, password string) (string, error) {
	if handle == "" || email == "" || password == "" {
		return "", newError(BadRequest, errors.New("handle, email and password are required"))
	}

	hashed, err := m.hasher.Hash(password)
	if err != nil {
		return "", newError(Internal, err)
	}
	pair, err := m.tokens.IssuePair(m.ttl)
	if err != nil {
		return "", newError(Internal, err)
	}

	id, err := m.store.CreateUserAndSession(ctx, model.NewUser{
		Email:        email,
		Handle:       handle,
		PasswordHash: hashed,
	}, pair.Token, pair.Cookie)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", newError(Conflict, err)
		}
		return "", newError(Internal, err)
	}
	return id, nil
}

// Authorize checks the cookie seal and expiry before it looks the session up.
func (m *Manager) Authorize(ctx context.Context, cookie string) (Context, error) {
	if cookie == "" {
		return Context{}, newError(Unauthorized, errors.New("missing session cookie"))
	}
	if err := m.tokens.VerifyCookie(cookie); err != nil {
		return Context{}, newError(Unauthorized, err)
	}

	sess, err := m.store.FindSessionByID(ctx, cookie)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Context{}, newError(Unauthorized, err)
		}
		return Context{}, newError(Internal, err)
	}
	return Context{SessionID: sess.ID, UserID: sess.UserID, CSRFToken: sess.CSRFToken}, nil
}

func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return newError(Internal, err)
	}
	return nil
}

// CheckCSRF compares the submitted token with the one minted for the session
// and with the one sealed inside the cookie.
func (m *Manager) CheckCSRF(sc Context, submitted string) error {
	if submitted == "" {
		return newError(Forbidden, errors.New("missing csrf token"))
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(sc.CSRFToken)) != 1 {
		return newError(Forbidden, errors.New("csrf token mismatch"))
	}
	if err := m.tokens.VerifyPair(submitted, sc.SessionID); err != nil {
		return newError(Forbidden, err)
	}
	return nil
}
