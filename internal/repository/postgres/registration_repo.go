package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"raceportal/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository returns the postgres-backed registration store.
// Bib numbers are allocated per event from the events.next_bib counter; the
// UPDATE ... RETURNING on that single row serializes concurrent allocations,
// and the unique index on (event_id, bib_number) is the backstop.
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

const registrationColumns = `id, event_id, category_id, athlete_id, status, bib_number, registration_number, required_documents, version, created_at, updated_at`

func docsToStrings(docs []domain.DocumentKind) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, string(d))
	}
	return out
}

func stringsToDocs(ss []string) []domain.DocumentKind {
	if len(ss) == 0 {
		return nil
	}
	out := make([]domain.DocumentKind, 0, len(ss))
	for _, s := range ss {
		out = append(out, domain.DocumentKind(s))
	}
	return out
}

func scanRegistration(row interface{ Scan(dest ...any) error }) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var docs pq.StringArray
	var status string
	err := row.Scan(&reg.ID, &reg.EventID, &reg.CategoryID, &reg.AthleteID, &status,
		&reg.BibNumber, &reg.RegistrationNumber, &docs, &reg.Version, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.Status(status)
	reg.RequiredDocuments = stringsToDocs(docs)
	return reg, nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "bib") {
			return domain.ErrConflict
		}
		return domain.ErrDuplicateRegistration
	}
	return err
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Take the slot first, inside the same transaction as the insert.
	if err := reserveCategorySlot(ctx, tx, reg.CategoryID); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (event_id, category_id, athlete_id, status, registration_number, required_documents, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
		RETURNING id
	`, reg.EventID, reg.CategoryID, reg.AthleteID, string(reg.Status), reg.RegistrationNumber,
		pq.Array(docsToStrings(reg.RequiredDocuments)), reg.CreatedAt, reg.UpdatedAt).
		Scan(&reg.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Version = 1
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByEventAndAthlete(ctx context.Context, eventID, athleteID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND athlete_id = $2`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, athleteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListByAthleteID(ctx context.Context, athleteID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE athlete_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, eventID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

func (r *registrationRepository) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE status = $1 AND updated_at < $2`
	rows, err := r.DB.QueryContext(ctx, query, string(domain.StatusPendingPayment), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// updateStatusTx performs the optimistic status write inside tx and bumps the
// version. Zero rows affected means a concurrent writer won.
func updateStatusTx(ctx context.Context, tx *sql.Tx, reg *domain.Registration, to domain.Status) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`, string(to), reg.ID, reg.Version)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateStatusTx(ctx, tx, reg, to); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Status = to
	reg.Version++
	return nil
}

func (r *registrationRepository) UpdateStatusReleaseSlot(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateStatusTx(ctx, tx, reg, to); err != nil {
		return err
	}
	if err := releaseCategorySlot(ctx, tx, reg.CategoryID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Status = to
	reg.Version++
	return nil
}

func (r *registrationRepository) UpdateStatusReserveSlot(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateStatusTx(ctx, tx, reg, to); err != nil {
		return err
	}
	if err := reserveCategorySlot(ctx, tx, reg.CategoryID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Status = to
	reg.Version++
	return nil
}

func (r *registrationRepository) Confirm(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := convertCategorySlot(ctx, tx, reg.CategoryID); err != nil {
		return err
	}

	// The single-row counter update serializes concurrent bib allocations
	// for the event.
	var bib int
	err = tx.QueryRowContext(ctx, `
		UPDATE events SET next_bib = next_bib + 1 WHERE id = $1 RETURNING next_bib
	`, reg.EventID).Scan(&bib)
	if err != nil {
		return fmt.Errorf("allocate bib: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = $1, bib_number = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4 AND bib_number IS NULL
	`, string(domain.StatusConfirmed), bib, reg.ID, reg.Version)
	if err != nil {
		return mapUniqueViolation(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm registration: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Status = domain.StatusConfirmed
	reg.BibNumber = &bib
	reg.Version++
	return nil
}

// slotKind classifies which ledger count a status occupies.
func slotKind(s domain.Status) string {
	switch s {
	case domain.StatusConfirmed:
		return "confirmed"
	case domain.StatusPendingPayment, domain.StatusPendingDocuments, domain.StatusUnderReview:
		return "reserved"
	}
	return ""
}

func (r *registrationRepository) OverrideStatus(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	from := reg.Status
	if from == to {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if fromKind, toKind := slotKind(from), slotKind(to); fromKind != toKind {
		// An override may be repairing an inconsistent ledger, so a release
		// that finds nothing to release is tolerated.
		if fromKind == "reserved" {
			if err := releaseCategorySlot(ctx, tx, reg.CategoryID); err != nil && !errors.Is(err, domain.ErrConflict) {
				return err
			}
		}
		if fromKind == "confirmed" {
			if err := releaseConfirmedCategorySlot(ctx, tx, reg.CategoryID); err != nil && !errors.Is(err, domain.ErrConflict) {
				return err
			}
		}
		switch toKind {
		case "reserved":
			if err := reserveCategorySlot(ctx, tx, reg.CategoryID); err != nil {
				return err
			}
		case "confirmed":
			res, err := tx.ExecContext(ctx,
				`UPDATE categories SET confirmed_count = confirmed_count + 1, updated_at = NOW() WHERE id = $1 AND reserved_count + confirmed_count < total_slots`,
				reg.CategoryID)
			if err != nil {
				return fmt.Errorf("override take slot: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("override take slot: %w", err)
			}
			if n == 0 {
				return domain.ErrCapacityExceeded
			}
		}
	}

	var bib *int
	if to == domain.StatusConfirmed && reg.BibNumber == nil {
		var b int
		if err := tx.QueryRowContext(ctx,
			`UPDATE events SET next_bib = next_bib + 1 WHERE id = $1 RETURNING next_bib`,
			reg.EventID).Scan(&b); err != nil {
			return fmt.Errorf("allocate bib: %w", err)
		}
		bib = &b
	}
	// Leaving confirmed retires the bib: the number is cleared and never
	// reissued, since next_bib only moves forward.
	clearBib := to != domain.StatusConfirmed && reg.BibNumber != nil

	var res sql.Result
	switch {
	case bib != nil:
		res, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = $1, bib_number = $2, version = version + 1, updated_at = NOW()
			WHERE id = $3 AND version = $4
		`, string(to), *bib, reg.ID, reg.Version)
	case clearBib:
		res, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = $1, bib_number = NULL, version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3
		`, string(to), reg.ID, reg.Version)
	default:
		res, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3
		`, string(to), reg.ID, reg.Version)
	}
	if err != nil {
		return mapUniqueViolation(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("override status: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	reg.Status = to
	if bib != nil {
		reg.BibNumber = bib
	}
	if clearBib {
		reg.BibNumber = nil
	}
	reg.Version++
	return nil
}
