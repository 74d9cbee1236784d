// Package store persists users and their single live session.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatroom/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store is the credential store contract. Every method that writes more than
// one row does so atomically.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	// CreateUserAndSession inserts the user and its first session together.
	CreateUserAndSession(ctx context.Context, user model.NewUser, csrfToken, sessionID string) (string, error)
	// ReplaceSessionForUser drops any session the user has and inserts the new one.
	ReplaceSessionForUser(ctx context.Context, userID int64, csrfToken, sessionID string) (string, error)
	FindSessionByID(ctx context.Context, id string) (model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open selects a backend from the DSN scheme:
//
//	memory://                       in-process maps
//	postgres://..., postgresql://   PostgreSQL through pgx
//	sqlite://path, file:..., path   SQLite
//
// SQL backends are migrated before Open returns.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, errors.New("empty database url")
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenSQL(ctx, DialectPostgres, dsn)
	default:
		return OpenSQL(ctx, DialectSQLite, sqliteDSN(dsn))
	}
}

func sqliteDSN(dsn string) string {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path, sep)
}
