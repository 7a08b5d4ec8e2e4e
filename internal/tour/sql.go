// internal/tour/sql.go
package tour

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mmss/internal/exchange"
)

// SQLStore keeps tours in the tours table.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const tourColumns = `id, status, submitted_date, visitor_username, version,
	price_per_person, number_of_participants, shift_time, date`

func (s *SQLStore) Insert(ctx context.Context, t *Tour) error {
	query := s.db.Rebind(`
		INSERT INTO tours (status, submitted_date, visitor_username, price_per_person,
			number_of_participants, shift_time, date, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		RETURNING id
	`)
	err := s.db.GetContext(ctx, &t.ID, query,
		t.Status, t.SubmittedDate, t.VisitorUsername, t.PricePerPerson,
		t.NumberOfParticipants, t.ShiftTime, t.Date)
	if err != nil {
		return fmt.Errorf("insert tour: %w", err)
	}
	t.Version = 1
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (*Tour, error) {
	var t Tour
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+tourColumns+` FROM tours WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.NotFound(entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tour %d: %w", id, err)
	}
	return &t, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Tour, error) {
	out := make([]*Tour, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT `+tourColumns+` FROM tours ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, t *Tour) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tours SET date = ?, number_of_participants = ?, version = version + 1
		WHERE id = ? AND version = ?
	`), t.Date, t.NumberOfParticipants, t.ID, t.Version)
	if err != nil {
		return fmt.Errorf("update tour %d: %w", t.ID, err)
	}
	if err := s.expectOne(ctx, res, t.ID, t.Version); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id, version int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM tours WHERE id = ? AND version = ?`), id, version)
	if err != nil {
		return fmt.Errorf("delete tour %d: %w", id, err)
	}
	return s.expectOne(ctx, res, id, version)
}

// expectOne turns a zero-row write into NotFound or a stale-version Conflict.
func (s *SQLStore) expectOne(ctx context.Context, res sql.Result, id, version int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tour %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return exchange.Conflict(entity, id, "version %d is stale", version)
}
