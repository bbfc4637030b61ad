package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned when a request is structurally valid but
// semantically wrong (e.g. shrinking capacity below taken slots).
var ErrInvalidInput = errors.New("invalid input")

// ErrForbidden is returned when an authenticated user acts on a resource
// it does not own.
var ErrForbidden = errors.New("forbidden")

// Event represents one edition of a race.
// swagger:model Event
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Year      int       `json:"year"`
	Edition   int       `json:"edition"`
	RaceDate  time.Time `json:"race_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name, slug string, year, edition int, raceDate time.Time, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Name:      name,
		Slug:      slug,
		Year:      year,
		Edition:   edition,
		RaceDate:  raceDate,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// AgeCutoffDate is the reference date against which every age rule is
// evaluated: December 31 of the race year, independent of the race date.
func (e *Event) AgeCutoffDate() time.Time {
	return time.Date(e.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
}
