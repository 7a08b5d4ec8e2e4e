// internal/loan/sql.go
package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mmss/internal/exchange"
	"mmss/internal/storage"
)

// SQLStore keeps loans in the loans table. The one-open-loan-per-artefact rule
// is enforced by a partial unique index.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const loanColumns = `id, status, submitted_date, visitor_username, version, artefact_id, due_date`

func (s *SQLStore) Insert(ctx context.Context, l *Loan) error {
	query := s.db.Rebind(`
		INSERT INTO loans (status, submitted_date, visitor_username, artefact_id, due_date, version)
		VALUES (?, ?, ?, ?, ?, 1)
		RETURNING id
	`)
	err := s.db.GetContext(ctx, &l.ID, query, l.Status, l.SubmittedDate, l.VisitorUsername, l.ArtefactID, l.DueDate)
	if storage.IsUniqueViolation(err) {
		return exchange.Conflict("artefact", l.ArtefactID, "already has an open loan")
	}
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	l.Version = 1
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (*Loan, error) {
	var l Loan
	err := s.db.GetContext(ctx, &l, s.db.Rebind(`SELECT `+loanColumns+` FROM loans WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.NotFound(entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}
	return &l, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Loan, error) {
	out := make([]*Loan, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT `+loanColumns+` FROM loans ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, l *Loan) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE loans SET status = ?, due_date = ?, version = version + 1
		WHERE id = ? AND version = ?
	`), l.Status, l.DueDate, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("update loan %d: %w", l.ID, err)
	}
	if err := s.expectOne(ctx, res, l.ID, l.Version); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id, version int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM loans WHERE id = ? AND version = ?`), id, version)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}
	return s.expectOne(ctx, res, id, version)
}

// expectOne turns a zero-row write into NotFound or a stale-version Conflict.
func (s *SQLStore) expectOne(ctx context.Context, res sql.Result, id, version int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("loan %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return exchange.Conflict(entity, id, "version %d is stale", version)
}
