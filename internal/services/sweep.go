package services

import (
	"context"
	"log/slog"
	"time"

	"raceportal/internal/domain"
)

// Sweeper periodically releases reservations whose payment saw no provider
// resolution within the abandonment window.
type Sweeper struct {
	payments     domain.PaymentService
	interval     time.Duration
	abandonAfter time.Duration
}

// NewSweeper creates a payment-abandonment sweeper. interval is how often it
// runs; abandonAfter is how long a pending payment may sit unresolved before
// its slot is reclaimed.
func NewSweeper(payments domain.PaymentService, interval, abandonAfter time.Duration) *Sweeper {
	return &Sweeper{
		payments:     payments,
		interval:     interval,
		abandonAfter: abandonAfter,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.abandonAfter)
	swept, err := s.payments.SweepAbandoned(ctx, cutoff)
	if err != nil {
		slog.Error("abandoned payment sweep failed", "error", err)
		return
	}
	if swept > 0 {
		slog.Info("abandoned payments swept", "count", swept)
	}
}
