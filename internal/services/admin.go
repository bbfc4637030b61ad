package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceportal/internal/domain"
)

type adminService struct {
	registrationRepo domain.RegistrationRepository
	categoryRepo     domain.CategoryRepository
	athleteRepo      domain.AthleteRepository
	registrations    domain.RegistrationService
	guard            domain.PermissionGuard
	audit            domain.AuditLog
	contextTimeout   time.Duration
}

// NewAdminService creates the organizer-facing service. Every mutation is
// permission-gated and audited.
func NewAdminService(
	registrationRepo domain.RegistrationRepository,
	categoryRepo domain.CategoryRepository,
	athleteRepo domain.AthleteRepository,
	registrations domain.RegistrationService,
	guard domain.PermissionGuard,
	audit domain.AuditLog,
	timeout time.Duration,
) domain.AdminService {
	return &adminService{
		registrationRepo: registrationRepo,
		categoryRepo:     categoryRepo,
		athleteRepo:      athleteRepo,
		registrations:    registrations,
		guard:            guard,
		audit:            audit,
		contextTimeout:   timeout,
	}
}

func (s *adminService) ReviewRegistration(ctx context.Context, actorID, registrationID string, decision domain.ReviewDecision, reason string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceRegistrations, domain.ActionWrite); err != nil {
		return nil, err
	}

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Status != domain.StatusUnderReview {
		return nil, fmt.Errorf("%w: registration is %s, not %s", domain.ErrInvalidTransition, reg.Status, domain.StatusUnderReview)
	}

	switch decision {
	case domain.ReviewApprove:
		reg, err = s.registrations.Confirm(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
	case domain.ReviewReject:
		if err := s.registrationRepo.UpdateStatusReleaseSlot(ctx, reg, domain.StatusRejected); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", domain.ErrInvalidInput, decision)
	}

	s.audit.Record(ctx, actorID, "registration.reviewed", domain.ResourceRegistrations, reg.ID,
		map[string]any{"decision": decision, "reason": reason, "status": reg.Status})
	return reg, nil
}

func (s *adminService) OverrideStatus(ctx context.Context, actorID, registrationID string, to domain.Status, reason string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceRegistrations, domain.ActionWrite); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, to)
	}

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	from := reg.Status
	if err := s.registrationRepo.OverrideStatus(ctx, reg, to); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, "registration.status_overridden", domain.ResourceRegistrations, reg.ID,
		map[string]any{"from": from, "to": to, "reason": reason})
	return reg, nil
}

func (s *adminService) UpdateCategoryCapacity(ctx context.Context, actorID, categoryID string, totalSlots int) (*domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceSettings, domain.ActionWrite); err != nil {
		return nil, err
	}
	if totalSlots < 0 {
		return nil, fmt.Errorf("%w: total slots must not be negative", domain.ErrInvalidInput)
	}

	category, err := s.categoryRepo.UpdateTotalSlots(ctx, categoryID, totalSlots)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, "category.capacity_updated", domain.ResourceSettings, categoryID,
		map[string]any{"total_slots": totalSlots})
	return category, nil
}

func (s *adminService) ListEventRegistrations(ctx context.Context, actorID, eventID string, p domain.PaginationParams) ([]*domain.RegistrationWithAthlete, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceRegistrations, domain.ActionRead); err != nil {
		return nil, 0, err
	}

	regs, total, err := s.registrationRepo.ListByEventID(ctx, eventID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	out := make([]*domain.RegistrationWithAthlete, 0, len(regs))
	for _, reg := range regs {
		athlete, err := s.athleteRepo.GetByID(ctx, reg.AthleteID)
		if err != nil {
			return nil, 0, fmt.Errorf("get athlete %s: %w", reg.AthleteID, err)
		}
		out = append(out, &domain.RegistrationWithAthlete{Registration: reg, Athlete: athlete})
	}
	return out, total, nil
}

func (s *adminService) ListAuditEntries(ctx context.Context, actorID, resource string, p domain.PaginationParams) ([]*domain.AuditEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.guard.Require(ctx, actorID, domain.ResourceAudit, domain.ActionRead); err != nil {
		return nil, 0, err
	}
	return s.audit.List(ctx, resource, p)
}
