// internal/visitors/implementation.go
package visitors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mmss/internal/exchange"
	"mmss/pkg/eventstore"
)

const minPasswordLen = 8

// service implements the Service interface.
type service struct {
	store       Store
	recorder    *eventstore.Recorder
	logger      *slog.Logger
	rateLimiter *rate.Limiter
}

// Option configures the visitors service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithRateLimiter replaces the default limit on registrations and logins.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(s *service) { s.rateLimiter = limiter }
}

// NewService creates a new visitors service instance. events may be nil.
func NewService(store Store, events eventstore.Store, opts ...Option) Service {
	s := &service{
		store:       store,
		logger:      slog.Default(),
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = eventstore.NewRecorder(events, s.logger)
	return s
}

// RegisterVisitor creates a new visitor with a hashed password.
func (s *service) RegisterVisitor(ctx context.Context, req Registration) (*Visitor, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		return nil, exchange.Validation("username", "is required")
	case strings.ContainsAny(username, " \t\n/"):
		return nil, exchange.Validation("username", "must not contain spaces or slashes")
	case strings.TrimSpace(req.Name) == "":
		return nil, exchange.Validation("name", "is required")
	case len(req.Password) < minPasswordLen:
		return nil, exchange.Validation("password", "must be at least %d characters", minPasswordLen)
	}

	passwordHash, salt, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	visitor := &Visitor{
		Username: username,
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
	}
	if err := s.store.Insert(ctx, visitor, Credential{PasswordHash: passwordHash, Salt: salt}); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, entity, visitor.Username, 1, "VisitorRegistered", VisitorRegisteredEvent{
		Username: visitor.Username,
		Name:     visitor.Name,
		Email:    visitor.Email,
	})
	s.logger.InfoContext(ctx, "visitor registered", "username", visitor.Username)
	return visitor, nil
}

// Authenticate verifies a visitor's credentials and returns the visitor if successful.
func (s *service) Authenticate(ctx context.Context, username, password string) (*Visitor, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	credential, err := s.store.Credential(ctx, username)
	if errors.Is(err, exchange.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		s.logger.DebugContext(ctx, "authentication rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	return s.store.Get(ctx, username)
}

// GetVisitor retrieves a visitor by username.
func (s *service) GetVisitor(ctx context.Context, username string) (*Visitor, error) {
	return s.store.Get(ctx, username)
}

func (s *service) ListVisitors(ctx context.Context) ([]*Visitor, error) {
	return s.store.List(ctx)
}
