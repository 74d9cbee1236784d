package model

import "time"

type User struct {
	ID           int64
	Email        string
	Handle       string
	PasswordHash string
}

// Session is the single live login of a user. ID is the sealed cookie the
// client presents, so it is also the cookie value.
type Session struct {
	ID        string
	CSRFToken string
	UserID    int64
	CreatedAt time.Time
}

// NewUser carries the columns supplied at sign-up; ID is assigned by the store.
type NewUser struct {
	Email        string
	Handle       string
	PasswordHash string
}
