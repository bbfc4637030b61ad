package postgres

import (
	"context"
	"database/sql"
	"errors"

	"raceportal/internal/domain"
)

type athleteRepository struct {
	DB *sql.DB
}

func NewAthleteRepository(db *sql.DB) domain.AthleteRepository {
	return &athleteRepository{DB: db}
}

const athleteColumns = `id, user_id, full_name, birth_date, gender, document, email, city, state, resident, guardian_name, guardian_document, created_at, updated_at`

func scanAthlete(row interface{ Scan(dest ...any) error }) (*domain.Athlete, error) {
	a := &domain.Athlete{}
	var guardianName, guardianDocument sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.BirthDate, &a.Gender, &a.Document,
		&a.Email, &a.City, &a.State, &a.Resident, &guardianName, &guardianDocument,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.GuardianName = guardianName.String
	a.GuardianDocument = guardianDocument.String
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *athleteRepository) Create(ctx context.Context, a *domain.Athlete) error {
	query := `
		INSERT INTO athletes (user_id, full_name, birth_date, gender, document, email, city, state, resident, guardian_name, guardian_document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, a.UserID, a.FullName, a.BirthDate, a.Gender,
		a.Document, a.Email, a.City, a.State, a.Resident,
		nullString(a.GuardianName), nullString(a.GuardianDocument),
		a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
}

func (r *athleteRepository) GetByID(ctx context.Context, id string) (*domain.Athlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE id = $1`
	a, err := scanAthlete(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *athleteRepository) GetByUserID(ctx context.Context, userID string) (*domain.Athlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE user_id = $1`
	a, err := scanAthlete(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *athleteRepository) Update(ctx context.Context, a *domain.Athlete) error {
	query := `
		UPDATE athletes
		SET full_name = $1, birth_date = $2, gender = $3, document = $4, email = $5,
			city = $6, state = $7, resident = $8, guardian_name = $9, guardian_document = $10,
			updated_at = NOW()
		WHERE id = $11
	`
	res, err := r.DB.ExecContext(ctx, query, a.FullName, a.BirthDate, a.Gender, a.Document,
		a.Email, a.City, a.State, a.Resident,
		nullString(a.GuardianName), nullString(a.GuardianDocument), a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
