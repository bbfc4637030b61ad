package memory

import (
	"context"
	"sync"

	"raceportal/internal/domain"
)

type counts struct {
	total     int
	reserved  int
	confirmed int
}

// CapacityLedger is an in-memory CapacityLedger for unit tests and local
// runs without postgres. All operations hold one mutex, so the capacity
// invariant reserved+confirmed <= total holds at every observable instant.
type CapacityLedger struct {
	mu         sync.Mutex
	categories map[string]*counts
}

var _ domain.CapacityLedger = (*CapacityLedger)(nil)

// NewCapacityLedger returns an empty in-memory ledger.
func NewCapacityLedger() *CapacityLedger {
	return &CapacityLedger{categories: make(map[string]*counts)}
}

// AddCategory registers a category with the given capacity and current counts.
func (l *CapacityLedger) AddCategory(categoryID string, totalSlots, reserved, confirmed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.categories[categoryID] = &counts{total: totalSlots, reserved: reserved, confirmed: confirmed}
}

// Counts returns (reserved, confirmed) for the category.
func (l *CapacityLedger) Counts(categoryID string) (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.categories[categoryID]
	if !ok {
		return 0, 0
	}
	return c.reserved, c.confirmed
}

func (l *CapacityLedger) Reserve(ctx context.Context, categoryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.reserved+c.confirmed >= c.total {
		return domain.ErrCapacityExceeded
	}
	c.reserved++
	return nil
}

func (l *CapacityLedger) Release(ctx context.Context, categoryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.reserved == 0 {
		return domain.ErrConflict
	}
	c.reserved--
	return nil
}

func (l *CapacityLedger) ConfirmReservation(ctx context.Context, categoryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.reserved == 0 {
		return domain.ErrConflict
	}
	c.reserved--
	c.confirmed++
	return nil
}

func (l *CapacityLedger) ReleaseConfirmed(ctx context.Context, categoryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.confirmed == 0 {
		return domain.ErrConflict
	}
	c.confirmed--
	return nil
}
