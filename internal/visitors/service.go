// internal/visitors/service.go
package visitors

import (
	"context"
	"errors"
)

var (
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service defines the interface for the visitors service.
type Service interface {
	RegisterVisitor(ctx context.Context, req Registration) (*Visitor, error)
	Authenticate(ctx context.Context, username, password string) (*Visitor, error)
	GetVisitor(ctx context.Context, username string) (*Visitor, error)
	ListVisitors(ctx context.Context) ([]*Visitor, error)
}

// Store persists visitors with their credentials. Insert fails with a
// Conflict when the username is taken.
type Store interface {
	Insert(ctx context.Context, v *Visitor, cred Credential) error
	Get(ctx context.Context, username string) (*Visitor, error)
	Credential(ctx context.Context, username string) (*Credential, error)
	List(ctx context.Context) ([]*Visitor, error)
}
