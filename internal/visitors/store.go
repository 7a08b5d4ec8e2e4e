// internal/visitors/store.go
package visitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mmss/internal/exchange"
	"mmss/internal/storage"
)

const entity = "visitor"

type account struct {
	visitor    Visitor
	credential Credential
}

// MemoryStore keeps visitors in process.
type MemoryStore struct {
	table *storage.Table[string, account]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{table: storage.NewTable[string, account]()}
}

func (m *MemoryStore) Insert(_ context.Context, v *Visitor, cred Credential) error {
	v.CreatedAt = time.Now().UTC()
	cred.Username = v.Username
	if !m.table.Insert(v.Username, account{visitor: *v, credential: cred}) {
		return exchange.Conflict(entity, v.Username, "username is taken")
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, username string) (*Visitor, error) {
	acc, ok := m.table.Get(username)
	if !ok {
		return nil, exchange.NotFound(entity, username)
	}
	return &acc.visitor, nil
}

func (m *MemoryStore) Credential(_ context.Context, username string) (*Credential, error) {
	acc, ok := m.table.Get(username)
	if !ok {
		return nil, exchange.NotFound(entity, username)
	}
	return &acc.credential, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Visitor, error) {
	rows := m.table.Values()
	out := make([]*Visitor, len(rows))
	for i := range rows {
		out[i] = &rows[i].visitor
	}
	return out, nil
}

// SQLStore keeps visitors in the visitors table.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, v *Visitor, cred Credential) error {
	v.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO visitors (username, name, email, password_hash, salt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), v.Username, v.Name, v.Email, cred.PasswordHash, cred.Salt, v.CreatedAt)
	if storage.IsUniqueViolation(err) {
		return exchange.Conflict(entity, v.Username, "username is taken")
	}
	if err != nil {
		return fmt.Errorf("insert visitor: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, username string) (*Visitor, error) {
	var v Visitor
	err := s.db.GetContext(ctx, &v, s.db.Rebind(`
		SELECT username, name, email, created_at FROM visitors WHERE username = ?
	`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.NotFound(entity, username)
	}
	if err != nil {
		return nil, fmt.Errorf("get visitor %s: %w", username, err)
	}
	return &v, nil
}

func (s *SQLStore) Credential(ctx context.Context, username string) (*Credential, error) {
	var c Credential
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`
		SELECT username, password_hash, salt FROM visitors WHERE username = ?
	`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.NotFound(entity, username)
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", username, err)
	}
	return &c, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Visitor, error) {
	out := make([]*Visitor, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT username, name, email, created_at FROM visitors ORDER BY created_at, username`); err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return out, nil
}
