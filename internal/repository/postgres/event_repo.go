package postgres

import (
	"context"
	"database/sql"
	"errors"

	"raceportal/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (name, slug, year, edition, race_date, next_bib, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, event.Name, event.Slug, event.Year,
		event.Edition, event.RaceDate, event.CreatedAt, event.UpdatedAt).
		Scan(&event.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, name, slug, year, edition, race_date, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	event := &domain.Event{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&event.ID, &event.Name, &event.Slug, &event.Year, &event.Edition,
			&event.RaceDate, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	query := `
		SELECT id, name, slug, year, edition, race_date, created_at, updated_at
		FROM events
		WHERE slug = $1
	`
	event := &domain.Event{}
	err := r.DB.QueryRowContext(ctx, query, slug).
		Scan(&event.ID, &event.Name, &event.Slug, &event.Year, &event.Edition,
			&event.RaceDate, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT id, name, slug, year, edition, race_date, created_at, updated_at
		FROM events
		ORDER BY race_date DESC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		event := &domain.Event{}
		if err := rows.Scan(&event.ID, &event.Name, &event.Slug, &event.Year,
			&event.Edition, &event.RaceDate, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
