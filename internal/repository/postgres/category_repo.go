package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"raceportal/internal/domain"
)

type categoryRepository struct {
	DB *sql.DB
}

func NewCategoryRepository(db *sql.DB) domain.CategoryRepository {
	return &categoryRepository{DB: db}
}

const categoryColumns = `id, event_id, name, slug, total_slots, reserved_count, confirmed_count, price_cents, min_age, max_age, requires_residency_proof, requires_guardian, created_at, updated_at`

func scanCategory(row interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(&c.ID, &c.EventID, &c.Name, &c.Slug, &c.TotalSlots, &c.ReservedCount,
		&c.ConfirmedCount, &c.PriceCents, &c.MinAge, &c.MaxAge,
		&c.RequiresResidencyProof, &c.RequiresGuardian, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (event_id, name, slug, total_slots, price_cents, min_age, max_age, requires_residency_proof, requires_guardian, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, c.EventID, c.Name, c.Slug, c.TotalSlots,
		c.PriceCents, c.MinAge, c.MaxAge, c.RequiresResidencyProof, c.RequiresGuardian,
		c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	c, err := scanCategory(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, eventID, slug string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE event_id = $1 AND slug = $2`
	c, err := scanCategory(r.DB.QueryRowContext(ctx, query, eventID, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE event_id = $1 ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) UpdateTotalSlots(ctx context.Context, id string, totalSlots int) (*domain.Category, error) {
	// The WHERE bound refuses shrinking below taken slots in the same
	// statement that writes, so a concurrent reservation cannot slip under.
	query := `
		UPDATE categories
		SET total_slots = $1, updated_at = NOW()
		WHERE id = $2 AND reserved_count + confirmed_count <= $1
		RETURNING ` + categoryColumns
	c, err := scanCategory(r.DB.QueryRowContext(ctx, query, totalSlots, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the category is missing or the new total is below the
			// taken count; disambiguate for the caller.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("%w: total_slots below reserved+confirmed", domain.ErrInvalidInput)
		}
		return nil, err
	}
	return c, nil
}
