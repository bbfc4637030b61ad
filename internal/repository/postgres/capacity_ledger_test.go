package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"raceportal/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestCapacityLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: nil,
		},
		{
			name: "capacity exceeded",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrCapacityExceeded,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			ledger := NewCapacityLedger(db)
			err = ledger.Reserve(ctx, "cat-1")
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCapacityLedger_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE categories`).
			WithArgs("cat-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewCapacityLedger(db).Release(ctx, "cat-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing reserved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE categories`).
			WithArgs("cat-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewCapacityLedger(db).Release(ctx, "cat-1")
		require.True(t, errors.Is(err, domain.ErrConflict))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCapacityLedger_ConfirmReservation(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE categories`).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCapacityLedger(db).ConfirmReservation(ctx, "cat-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
