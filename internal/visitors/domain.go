// internal/visitors/domain.go
package visitors

import (
	"time"
)

// Visitor is a registered museum visitor, identified by username.
type Visitor struct {
	Username  string    `json:"username" db:"username"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Credential holds a visitor's password hash.
type Credential struct {
	Username     string `json:"-" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Salt         string `json:"-" db:"salt"`
}

// Registration carries the fields of a sign-up request.
type Registration struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VisitorRegisteredEvent is recorded when a visitor signs up.
type VisitorRegisteredEvent struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
