package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"chatroom/internal/model"
	"chatroom/internal/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	queryFindUserByEmail = `SELECT id, email, handle, hashed_password
		FROM users
		WHERE email = ?
		LIMIT 1`

	queryInsertUser = `INSERT INTO users (email, handle, hashed_password)
		VALUES (?, ?, ?)
		RETURNING id`

	queryDeleteUserSessions = `DELETE FROM sessions WHERE user_id = ?`

	// ON CONFLICT covers a concurrent login for the same user that committed
	// between our DELETE and INSERT: the later transaction wins.
	queryInsertSession = `INSERT INTO sessions (id, csrf_token, user_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET id = excluded.id, csrf_token = excluded.csrf_token, created_at = excluded.created_at
		RETURNING id`

	queryFindSession = `SELECT id, csrf_token, user_id, created_at
		FROM sessions
		WHERE id = ?
		LIMIT 1`

	queryDeleteSession = `DELETE FROM sessions WHERE id = ?`
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQL(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// OpenSQL connects, verifies the connection and applies pending migrations.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection serializes transactions.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewSQL(db, dialect), nil
}

// gooseUp is a seam for tests that must not touch a real schema.
var gooseUp = func(ctx context.Context, p *goose.Provider) error {
	_, err := p.Up(ctx)
	return err
}

func migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	fsys, err := fs.Sub(migrations.FS, string(dialect))
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect.goose(), db, fsys)
	if err != nil {
		return err
	}
	return gooseUp(ctx, provider)
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(queryFindUserByEmail), email).
		Scan(&u.ID, &u.Email, &u.Handle, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *SQLStore) CreateUserAndSession(ctx context.Context, user model.NewUser, csrfToken, sessionID string) (string, error) {
	var created string
	err := withTx(ctx, s.db, func(ctx context.Context, tx querier) error {
		var userID int64
		if err := tx.QueryRowContext(ctx, s.dialect.rebind(queryInsertUser),
			user.Email, user.Handle, user.PasswordHash).Scan(&userID); err != nil {
			return err
		}

		var err error
		created, err = s.insertSession(ctx, tx, userID, csrfToken, sessionID)
		return err
	})
	if err != nil {
		return "", s.wrap(err)
	}
	return created, nil
}

func (s *SQLStore) ReplaceSessionForUser(ctx context.Context, userID int64, csrfToken, sessionID string) (string, error) {
	var created string
	err := withTx(ctx, s.db, func(ctx context.Context, tx querier) error {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(queryDeleteUserSessions), userID); err != nil {
			return err
		}

		var err error
		created, err = s.insertSession(ctx, tx, userID, csrfToken, sessionID)
		return err
	})
	if err != nil {
		return "", s.wrap(err)
	}
	return created, nil
}

func (s *SQLStore) insertSession(ctx context.Context, tx querier, userID int64, csrfToken, sessionID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, s.dialect.rebind(queryInsertSession),
		sessionID, csrfToken, userID, s.now().Unix()).Scan(&id)
	return id, err
}

func (s *SQLStore) FindSessionByID(ctx context.Context, id string) (model.Session, error) {
	var (
		sess      model.Session
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(queryFindSession), id).
		Scan(&sess.ID, &sess.CSRFToken, &sess.UserID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("db error: %w", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	return sess, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(queryDeleteSession), id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) wrap(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}
