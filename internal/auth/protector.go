package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = chacha20poly1305.KeySize
	tokenSize = 32
)

var (
	ErrKeySize    = fmt.Errorf("key must be %d bytes", KeySize)
	ErrMalformed  = errors.New("malformed cookie")
	ErrForged     = errors.New("forged cookie")
	ErrExpired    = errors.New("expired cookie")
	ErrMismatch   = errors.New("csrf token does not match cookie")
	ErrInvalidTTL = errors.New("ttl must be positive")
)

// cookieLabel is bound into every seal as associated data.
var cookieLabel = []byte("chatroom/session-cookie/v1")

// TokenPair is minted once per session. Token is the CSRF value stored with
// the session row; Cookie is the sealed blob handed to the browser.
type TokenPair struct {
	Token  string
	Cookie string
}

// Protector seals and opens session cookies with XChaCha20-Poly1305 under a
// single process-wide key.
type Protector struct {
	aead cipher.AEAD
	now  func() time.Time
}

func NewProtector(key []byte) (*Protector, error) {
	return NewProtectorWithNow(key, time.Now)
}

func NewProtectorWithNow(key []byte, now func() time.Time) (*Protector, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Protector{aead: aead, now: now}, nil
}

func (p *Protector) IssuePair(ttl time.Duration) (TokenPair, error) {
	if ttl <= 0 {
		return TokenPair{}, ErrInvalidTTL
	}

	raw := make([]byte, tokenSize)
	if _, err := rand.Read(raw); err != nil {
		return TokenPair{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := p.now()
	claims := jwt.RegisteredClaims{
		ID:        token,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	plaintext, err := json.Marshal(claims)
	if err != nil {
		return TokenPair{}, err
	}

	nonce := make([]byte, p.aead.NonceSize(), p.aead.NonceSize()+len(plaintext)+p.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return TokenPair{}, err
	}
	sealed := p.aead.Seal(nonce, nonce, plaintext, cookieLabel)

	return TokenPair{Token: token, Cookie: base64.RawURLEncoding.EncodeToString(sealed)}, nil
}

func (p *Protector) VerifyCookie(cookie string) error {
	_, err := p.open(cookie)
	return err
}

// VerifyPair checks the cookie and that token is the CSRF token sealed in it.
func (p *Protector) VerifyPair(token, cookie string) error {
	claims, err := p.open(cookie)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(claims.ID)) != 1 {
		return ErrMismatch
	}
	return nil
}

// open authenticates before anything inside the blob is parsed.
func (p *Protector) open(cookie string) (*jwt.RegisteredClaims, error) {
	sealed, err := base64.RawURLEncoding.Strict().DecodeString(cookie)
	if err != nil {
		return nil, ErrMalformed
	}
	ns := p.aead.NonceSize()
	if len(sealed) < ns+p.aead.Overhead() {
		return nil, ErrMalformed
	}

	plaintext, err := p.aead.Open(nil, sealed[:ns], sealed[ns:], cookieLabel)
	if err != nil {
		return nil, ErrForged
	}

	var claims jwt.RegisteredClaims
	if err := json.Unmarshal(plaintext, &claims); err != nil || claims.ID == "" {
		return nil, ErrMalformed
	}

	validator := jwt.NewValidator(jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err := validator.Validate(claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	return &claims, nil
}
