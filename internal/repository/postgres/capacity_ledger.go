package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"raceportal/internal/domain"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so the slot statements can
// run standalone or inside a registration transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// reserveCategorySlot takes one reserved slot. The capacity check lives in the
// WHERE clause, so concurrent callers against the last slot yield exactly one
// success; a zero-row result means the category is full.
func reserveCategorySlot(ctx context.Context, ex execer, categoryID string) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE categories
		SET reserved_count = reserved_count + 1, updated_at = NOW()
		WHERE id = $1 AND reserved_count + confirmed_count < total_slots
	`, categoryID)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if n == 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// releaseCategorySlot returns one reserved slot to the pool. A zero-row result
// means no reservation was outstanding, which only happens when a concurrent
// writer got there first.
func releaseCategorySlot(ctx context.Context, ex execer, categoryID string) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE categories
		SET reserved_count = reserved_count - 1, updated_at = NOW()
		WHERE id = $1 AND reserved_count > 0
	`, categoryID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("release slot: %w", domain.ErrConflict)
	}
	return nil
}

// convertCategorySlot moves one slot from reserved to confirmed.
func convertCategorySlot(ctx context.Context, ex execer, categoryID string) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE categories
		SET reserved_count = reserved_count - 1, confirmed_count = confirmed_count + 1, updated_at = NOW()
		WHERE id = $1 AND reserved_count > 0
	`, categoryID)
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("confirm reservation: %w", domain.ErrConflict)
	}
	return nil
}

// releaseConfirmedCategorySlot undoes a confirmed count.
func releaseConfirmedCategorySlot(ctx context.Context, ex execer, categoryID string) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE categories
		SET confirmed_count = confirmed_count - 1, updated_at = NOW()
		WHERE id = $1 AND confirmed_count > 0
	`, categoryID)
	if err != nil {
		return fmt.Errorf("release confirmed slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release confirmed slot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("release confirmed slot: %w", domain.ErrConflict)
	}
	return nil
}

type capacityLedger struct {
	DB *sql.DB
}

// NewCapacityLedger returns a CapacityLedger backed by the categories table.
// The registration repository runs the same statements inside its own
// transactions; this standalone form serves callers that adjust counts
// outside a registration write.
func NewCapacityLedger(db *sql.DB) domain.CapacityLedger {
	return &capacityLedger{DB: db}
}

func (l *capacityLedger) Reserve(ctx context.Context, categoryID string) error {
	return reserveCategorySlot(ctx, l.DB, categoryID)
}

func (l *capacityLedger) Release(ctx context.Context, categoryID string) error {
	return releaseCategorySlot(ctx, l.DB, categoryID)
}

func (l *capacityLedger) ConfirmReservation(ctx context.Context, categoryID string) error {
	return convertCategorySlot(ctx, l.DB, categoryID)
}

func (l *capacityLedger) ReleaseConfirmed(ctx context.Context, categoryID string) error {
	return releaseConfirmedCategorySlot(ctx, l.DB, categoryID)
}
