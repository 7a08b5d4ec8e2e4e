// internal/collections/sql.go
package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mmss/internal/exchange"
)

// SQLStore keeps artefacts in the artefacts table.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const artefactColumns = `id, name, description, loanable, loan_fee, active_loan_id, version, created_at, updated_at`

func (s *SQLStore) Insert(ctx context.Context, a *Artefact) error {
	now := time.Now().UTC()
	query := s.db.Rebind(`
		INSERT INTO artefacts (name, description, loanable, loan_fee, active_loan_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		RETURNING id
	`)
	if err := s.db.GetContext(ctx, &a.ID, query, a.Name, a.Description, a.Loanable, a.LoanFee, a.ActiveLoanID, now, now); err != nil {
		return fmt.Errorf("insert artefact: %w", err)
	}
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (*Artefact, error) {
	var a Artefact
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT `+artefactColumns+` FROM artefacts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.NotFound(entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get artefact %d: %w", id, err)
	}
	return &a, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Artefact, error) {
	out := make([]*Artefact, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT `+artefactColumns+` FROM artefacts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list artefacts: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, a *Artefact) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE artefacts
		SET name = ?, description = ?, loanable = ?, loan_fee = ?, active_loan_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`), a.Name, a.Description, a.Loanable, a.LoanFee, a.ActiveLoanID, now, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("update artefact %d: %w", a.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update artefact %d: %w", a.ID, err)
	} else if n == 0 {
		if _, err := s.Get(ctx, a.ID); err != nil {
			return err
		}
		return exchange.Conflict(entity, a.ID, "version %d is stale", a.Version)
	}
	a.Version++
	a.UpdatedAt = now
	return nil
}

// Delete removes the artefact only while it still has version and no
// active-loan marker.
func (s *SQLStore) Delete(ctx context.Context, id, version int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM artefacts
		WHERE id = ? AND version = ? AND active_loan_id IS NULL
	`), id, version)
	if err != nil {
		return fmt.Errorf("delete artefact %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artefact %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.OnLoan() {
		return exchange.Conflict(entity, id, "on loan %d", *current.ActiveLoanID)
	}
	return exchange.Conflict(entity, id, "version %d is stale, current is %d", version, current.Version)
}
