package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"raceportal/internal/domain"
)

// confirmRetries bounds how often a confirmation is retried after losing an
// optimistic race; each retry reloads the registration first.
const confirmRetries = 3

type registrationService struct {
	eventRepo        domain.EventRepository
	categoryRepo     domain.CategoryRepository
	athleteRepo      domain.AthleteRepository
	registrationRepo domain.RegistrationRepository
	emailService     domain.EmailService
	audit            domain.AuditLog
	contextTimeout   time.Duration
}

// NewRegistrationService creates a RegistrationService with the given
// repositories and collaborators.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	categoryRepo domain.CategoryRepository,
	athleteRepo domain.AthleteRepository,
	registrationRepo domain.RegistrationRepository,
	emailService domain.EmailService,
	audit domain.AuditLog,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		eventRepo:        eventRepo,
		categoryRepo:     categoryRepo,
		athleteRepo:      athleteRepo,
		registrationRepo: registrationRepo,
		emailService:     emailService,
		audit:            audit,
		contextTimeout:   timeout,
	}
}

func (s *registrationService) SignUp(ctx context.Context, userID string, in domain.SignUpInput) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	category, err := s.categoryRepo.GetBySlug(ctx, event.ID, in.CategorySlug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	athlete, err := s.ensureAthlete(ctx, userID, in.Athlete)
	if err != nil {
		return nil, err
	}

	if _, err := s.registrationRepo.GetByEventAndAthlete(ctx, event.ID, athlete.ID); err == nil {
		return nil, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	// Age is recomputed from the birth date against the event's cutoff on
	// every evaluation.
	decision := domain.EvaluateEligibility(athlete, category.Rules(), event.AgeCutoffDate())
	if err := decision.Err(); err != nil {
		return nil, err
	}

	initial := domain.StatusPending
	switch {
	case len(decision.RequiredDocuments) > 0:
		initial = domain.StatusPendingDocuments
	case !category.Free():
		initial = domain.StatusPendingPayment
	}

	now := time.Now()
	reg := domain.NewRegistration(event.ID, category.ID, athlete.ID,
		fmt.Sprintf("%d-%s", event.Year, uuid.NewString()[:8]), initial, now)
	reg.RequiredDocuments = decision.RequiredDocuments

	// Create takes the category slot and inserts in one transaction.
	if err := s.registrationRepo.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "registration.signup", domain.ResourceRegistrations, reg.ID, reg)

	// Free category with nothing to review: confirm right away, which also
	// assigns the bib.
	if initial == domain.StatusPending {
		confirmed, err := s.Confirm(ctx, reg.ID)
		if err != nil {
			// A pending registration has no path back to this reservation,
			// so return the slot to the pool before surfacing the failure.
			// ErrConflict means a concurrent writer already moved the row.
			if relErr := s.registrationRepo.UpdateStatusReleaseSlot(ctx, reg, domain.StatusPending); relErr != nil && !errors.Is(relErr, domain.ErrConflict) {
				return nil, fmt.Errorf("release slot after failed confirmation: %w", relErr)
			}
			return nil, err
		}
		return confirmed, nil
	}
	return reg, nil
}

// ensureAthlete returns the caller's athlete profile, creating it from the
// signup payload on first registration and refreshing mutable fields after.
func (s *registrationService) ensureAthlete(ctx context.Context, userID string, in *domain.Athlete) (*domain.Athlete, error) {
	existing, err := s.athleteRepo.GetByUserID(ctx, userID)
	if err == nil {
		if in != nil {
			existing.FullName = in.FullName
			existing.BirthDate = in.BirthDate
			existing.Gender = in.Gender
			existing.Document = in.Document
			existing.Email = in.Email
			existing.City = in.City
			existing.State = in.State
			existing.Resident = in.Resident
			existing.GuardianName = in.GuardianName
			existing.GuardianDocument = in.GuardianDocument
			if err := s.athleteRepo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("update athlete: %w", err)
			}
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get athlete: %w", err)
	}
	if in == nil {
		return nil, fmt.Errorf("%w: athlete data is required for first registration", domain.ErrInvalidInput)
	}

	now := time.Now()
	athlete := domain.NewAthlete(userID, in.FullName, in.BirthDate, in.Gender, in.Document, in.Email, now, now)
	athlete.City = in.City
	athlete.State = in.State
	athlete.Resident = in.Resident
	athlete.GuardianName = in.GuardianName
	athlete.GuardianDocument = in.GuardianDocument
	if err := s.athleteRepo.Create(ctx, athlete); err != nil {
		return nil, fmt.Errorf("create athlete: %w", err)
	}
	return athlete, nil
}

// getOwned loads a registration and verifies it belongs to the caller's
// athlete profile.
func (s *registrationService) getOwned(ctx context.Context, userID, registrationID string) (*domain.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	athlete, err := s.athleteRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get athlete: %w", err)
	}
	if reg.AthleteID != athlete.ID {
		return nil, domain.ErrForbidden
	}
	return reg, nil
}

func (s *registrationService) GetMyRegistration(ctx context.Context, userID, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.getOwned(ctx, userID, registrationID)
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	athlete, err := s.athleteRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []*domain.Registration{}, nil
		}
		return nil, fmt.Errorf("get athlete: %w", err)
	}
	regs, err := s.registrationRepo.ListByAthleteID(ctx, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

func (s *registrationService) SubmitDocuments(ctx context.Context, userID, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.getOwned(ctx, userID, registrationID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(reg.Status, domain.StatusUnderReview) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, reg.Status, domain.StatusUnderReview)
	}
	if err := s.registrationRepo.UpdateStatus(ctx, reg, domain.StatusUnderReview); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "registration.documents_submitted", domain.ResourceRegistrations, reg.ID,
		map[string]any{"status": reg.Status})
	return reg, nil
}

func (s *registrationService) Cancel(ctx context.Context, userID, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.getOwned(ctx, userID, registrationID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(reg.Status, domain.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, reg.Status, domain.StatusCancelled)
	}

	// Withdrawal always returns a held reservation to the pool.
	if reg.Status.HoldsReservation() {
		err = s.registrationRepo.UpdateStatusReleaseSlot(ctx, reg, domain.StatusCancelled)
	} else {
		err = s.registrationRepo.UpdateStatus(ctx, reg, domain.StatusCancelled)
	}
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "registration.cancelled", domain.ResourceRegistrations, reg.ID,
		map[string]any{"status": reg.Status})
	return reg, nil
}

func (s *registrationService) Confirm(ctx context.Context, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	for attempt := 0; attempt < confirmRetries; attempt++ {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, registrationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get registration: %w", err)
		}

		// Replayed confirmation is a no-op; the bib stays as assigned.
		if reg.Status == domain.StatusConfirmed {
			return reg, nil
		}
		if !domain.CanTransition(reg.Status, domain.StatusConfirmed) {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, reg.Status, domain.StatusConfirmed)
		}

		err = s.registrationRepo.Confirm(ctx, reg)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		return nil, err
	}
	if reg.Status != domain.StatusConfirmed {
		return nil, domain.ErrConflict
	}

	s.audit.Record(ctx, "system", "registration.confirmed", domain.ResourceRegistrations, reg.ID,
		map[string]any{"bib_number": reg.BibNumber})
	s.sendConfirmationEmail(ctx, reg)
	return reg, nil
}

// sendConfirmationEmail is best-effort; a mail failure never affects the
// confirmed registration.
func (s *registrationService) sendConfirmationEmail(ctx context.Context, reg *domain.Registration) {
	if s.emailService == nil || reg.BibNumber == nil {
		return
	}
	athlete, err := s.athleteRepo.GetByID(ctx, reg.AthleteID)
	if err != nil {
		return
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return
	}
	category, err := s.categoryRepo.GetByID(ctx, reg.CategoryID)
	if err != nil {
		return
	}
	_ = s.emailService.SendRegistrationConfirmed(ctx, athlete.Email, &domain.ConfirmationEmailData{
		AthleteName:  athlete.FullName,
		EventName:    event.Name,
		CategoryName: category.Name,
		BibNumber:    *reg.BibNumber,
	})
}
