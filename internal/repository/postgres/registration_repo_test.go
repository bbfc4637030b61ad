package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"raceportal/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	newReg := func() *domain.Registration {
		return &domain.Registration{
			EventID:            "ev-1",
			CategoryID:         "cat-1",
			AthleteID:          "ath-1",
			Status:             domain.StatusPendingPayment,
			RegistrationNumber: "2026-0001",
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		wantID  string
	}{
		{
			name: "success reserves slot and inserts",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-1"))
				mock.ExpectCommit()
			},
			wantID: "reg-1",
		},
		{
			name: "category full",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrCapacityExceeded,
		},
		{
			name: "duplicate athlete registration rolls back the reservation",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE categories`).
					WithArgs("cat-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "registrations_event_athlete_key"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrDuplicateRegistration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			reg := newReg()
			err = repo.Create(ctx, reg)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantID, reg.ID)
				require.Equal(t, 1, reg.Version)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_Confirm(t *testing.T) {
	ctx := context.Background()

	newReg := func() *domain.Registration {
		return &domain.Registration{
			ID:         "reg-1",
			EventID:    "ev-1",
			CategoryID: "cat-1",
			AthleteID:  "ath-1",
			Status:     domain.StatusPendingPayment,
			Version:    2,
		}
	}

	t.Run("success assigns next bib and converts reservation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE categories`).
			WithArgs("cat-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE events SET next_bib`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"next_bib"}).AddRow(42))
		mock.ExpectExec(`UPDATE registrations`).
			WithArgs(string(domain.StatusConfirmed), 42, "reg-1", 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		reg := newReg()
		require.NoError(t, NewRegistrationRepository(db).Confirm(ctx, reg))
		require.Equal(t, domain.StatusConfirmed, reg.Status)
		require.NotNil(t, reg.BibNumber)
		require.Equal(t, 42, *reg.BibNumber)
		require.Equal(t, 3, reg.Version)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version moved on concurrently", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE categories`).
			WithArgs("cat-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE events SET next_bib`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"next_bib"}).AddRow(42))
		mock.ExpectExec(`UPDATE registrations`).
			WithArgs(string(domain.StatusConfirmed), 42, "reg-1", 2).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewRegistrationRepository(db).Confirm(ctx, newReg())
		require.True(t, errors.Is(err, domain.ErrConflict))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no reservation held", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE categories`).
			WithArgs("cat-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewRegistrationRepository(db).Confirm(ctx, newReg())
		require.True(t, errors.Is(err, domain.ErrConflict))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_UpdateStatusReleaseSlot(t *testing.T) {
	ctx := context.Background()

	reg := &domain.Registration{
		ID:         "reg-1",
		EventID:    "ev-1",
		CategoryID: "cat-1",
		Status:     domain.StatusPendingPayment,
		Version:    1,
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE registrations`).
		WithArgs(string(domain.StatusPending), "reg-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE categories`).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewRegistrationRepository(db).UpdateStatusReleaseSlot(ctx, reg, domain.StatusPending))
	require.Equal(t, domain.StatusPending, reg.Status)
	require.Equal(t, 2, reg.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_UpdateStatus_Conflict(t *testing.T) {
	ctx := context.Background()

	reg := &domain.Registration{
		ID:      "reg-1",
		Status:  domain.StatusPendingDocuments,
		Version: 3,
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE registrations`).
		WithArgs(string(domain.StatusUnderReview), "reg-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewRegistrationRepository(db).UpdateStatus(ctx, reg, domain.StatusUnderReview)
	require.True(t, errors.Is(err, domain.ErrConflict))
	// The in-memory registration is untouched on failure.
	require.Equal(t, domain.StatusPendingDocuments, reg.Status)
	require.Equal(t, 3, reg.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "event_id", "category_id", "athlete_id", "status", "bib_number", "registration_number", "required_documents", "version", "created_at", "updated_at"}).
			AddRow("reg-1", "ev-1", "cat-1", "ath-1", "confirmed", 7, "2026-0007", pq.StringArray{}, 4, now, now)
		mock.ExpectQuery(`SELECT id, event_id, category_id, athlete_id, status`).
			WithArgs("reg-1").
			WillReturnRows(rows)

		got, err := NewRegistrationRepository(db).GetByID(ctx, "reg-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusConfirmed, got.Status)
		require.NotNil(t, got.BibNumber)
		require.Equal(t, 7, *got.BibNumber)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, event_id, category_id, athlete_id, status`).
			WithArgs("reg-missing").
			WillReturnError(sql.ErrNoRows)

		got, err := NewRegistrationRepository(db).GetByID(ctx, "reg-missing")
		require.Nil(t, got)
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_OverrideStatus_ClearsBib(t *testing.T) {
	ctx := context.Background()

	bib := 7
	reg := &domain.Registration{
		ID:         "reg-1",
		EventID:    "ev-1",
		CategoryID: "cat-1",
		Status:     domain.StatusConfirmed,
		BibNumber:  &bib,
		Version:    4,
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE categories`).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE registrations`).
		WithArgs(string(domain.StatusCancelled), "reg-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewRegistrationRepository(db).OverrideStatus(ctx, reg, domain.StatusCancelled))
	require.Equal(t, domain.StatusCancelled, reg.Status)
	require.Nil(t, reg.BibNumber)
	require.Equal(t, 5, reg.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}
