package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"raceportal/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestCapacityLedger_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	ledger := NewCapacityLedger()
	ledger.AddCategory("c1", 2, 0, 0)

	require.NoError(t, ledger.Reserve(ctx, "c1"))
	require.NoError(t, ledger.Reserve(ctx, "c1"))
	require.ErrorIs(t, ledger.Reserve(ctx, "c1"), domain.ErrCapacityExceeded)

	require.NoError(t, ledger.Release(ctx, "c1"))
	require.NoError(t, ledger.Reserve(ctx, "c1"))

	reserved, confirmed := ledger.Counts("c1")
	require.Equal(t, 2, reserved)
	require.Equal(t, 0, confirmed)

	require.ErrorIs(t, ledger.Reserve(ctx, "missing"), domain.ErrNotFound)
	require.ErrorIs(t, ledger.ReleaseConfirmed(ctx, "c1"), domain.ErrConflict)
}

func TestCapacityLedger_ConfirmCountsAgainstCapacity(t *testing.T) {
	ctx := context.Background()
	ledger := NewCapacityLedger()
	ledger.AddCategory("c1", 1, 0, 0)

	require.NoError(t, ledger.Reserve(ctx, "c1"))
	require.NoError(t, ledger.ConfirmReservation(ctx, "c1"))

	// The confirmed slot still occupies capacity.
	require.ErrorIs(t, ledger.Reserve(ctx, "c1"), domain.ErrCapacityExceeded)

	require.NoError(t, ledger.ReleaseConfirmed(ctx, "c1"))
	require.NoError(t, ledger.Reserve(ctx, "c1"))
}

func TestCapacityLedger_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	ledger := NewCapacityLedger()

	const totalSlots = 5
	const numRequests = 100
	ledger.AddCategory("c1", totalSlots, 0, 0)

	var successCount, exceededCount, errorCount int32
	var wg sync.WaitGroup
	wg.Add(numRequests)

	for i := 0; i < numRequests; i++ {
		go func() {
			defer wg.Done()
			err := ledger.Reserve(ctx, "c1")
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, domain.ErrCapacityExceeded):
				atomic.AddInt32(&exceededCount, 1)
			default:
				atomic.AddInt32(&errorCount, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(totalSlots), successCount, "exactly the available slots succeed")
	require.Equal(t, int32(numRequests-totalSlots), exceededCount)
	require.Equal(t, int32(0), errorCount)

	reserved, confirmed := ledger.Counts("c1")
	require.LessOrEqual(t, reserved+confirmed, totalSlots)
}
