package model

import "time"

// User is an account identified by email.
//
// PasswordHash is a bcrypt hash and is never serialized: json:"-" keeps it out
// of every response, including GET /auth/me. Accounts created through GitHub
// login have an empty hash and cannot use password login.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
