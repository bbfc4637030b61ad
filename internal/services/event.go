package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceportal/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	categoryRepo   domain.CategoryRepository
	guard          domain.PermissionGuard
	audit          domain.AuditLog
	contextTimeout time.Duration
}

// NewEventService creates an EventService.
func NewEventService(
	eventRepo domain.EventRepository,
	categoryRepo domain.CategoryRepository,
	guard domain.PermissionGuard,
	audit domain.AuditLog,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		categoryRepo:   categoryRepo,
		guard:          guard,
		audit:          audit,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actorID string, event *domain.Event, categories []*domain.Category) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceSettings, domain.ActionWrite); err != nil {
		return nil, err
	}
	if event.Name == "" || event.Slug == "" || event.Year == 0 {
		return nil, fmt.Errorf("%w: name, slug and year are required", domain.ErrInvalidInput)
	}
	for _, c := range categories {
		if c.TotalSlots < 0 {
			return nil, fmt.Errorf("%w: category %q total slots must not be negative", domain.ErrInvalidInput, c.Slug)
		}
		if c.MinAge != nil && c.MaxAge != nil && *c.MinAge > *c.MaxAge {
			return nil, fmt.Errorf("%w: category %q min age above max age", domain.ErrInvalidInput, c.Slug)
		}
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	for _, c := range categories {
		c.EventID = event.ID
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := s.categoryRepo.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create category %q: %w", c.Slug, err)
		}
	}

	s.audit.Record(ctx, actorID, "event.created", domain.ResourceSettings, event.ID,
		map[string]any{"slug": event.Slug, "categories": len(categories)})
	return event, nil
}

func (s *eventService) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.List(ctx)
}

func (s *eventService) ListCategories(ctx context.Context, eventID string) ([]*domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.categoryRepo.ListByEventID(ctx, eventID)
}
