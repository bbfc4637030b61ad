package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceportal/internal/domain"
)

type paymentService struct {
	paymentRepo      domain.PaymentRepository
	registrationRepo domain.RegistrationRepository
	athleteRepo      domain.AthleteRepository
	categoryRepo     domain.CategoryRepository
	provider         domain.PaymentProvider
	registrations    domain.RegistrationService
	audit            domain.AuditLog
	contextTimeout   time.Duration
}

// NewPaymentService creates a PaymentService. The registration service is
// used as the confirmation entry point so a paid charge always flows through
// the same transition logic as every other confirmation.
func NewPaymentService(
	paymentRepo domain.PaymentRepository,
	registrationRepo domain.RegistrationRepository,
	athleteRepo domain.AthleteRepository,
	categoryRepo domain.CategoryRepository,
	provider domain.PaymentProvider,
	registrations domain.RegistrationService,
	audit domain.AuditLog,
	timeout time.Duration,
) domain.PaymentService {
	return &paymentService{
		paymentRepo:      paymentRepo,
		registrationRepo: registrationRepo,
		athleteRepo:      athleteRepo,
		categoryRepo:     categoryRepo,
		provider:         provider,
		registrations:    registrations,
		audit:            audit,
		contextTimeout:   timeout,
	}
}

func (s *paymentService) getOwned(ctx context.Context, userID, registrationID string) (*domain.Registration, error) {
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

func (s *paymentService) StartPayment(ctx context.Context, userID, registrationID string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.getOwned(ctx, userID, registrationID)
	if err != nil {
		return nil, err
	}

	switch reg.Status {
	case domain.StatusPendingPayment:
		// An open charge is reused instead of creating a second one.
		if payment, err := s.paymentRepo.GetOpenByRegistrationID(ctx, reg.ID); err == nil {
			return payment, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get open payment: %w", err)
		}
	case domain.StatusPending:
		// Swept registration: the slot was released, take a new one before
		// charging again.
		if err := s.registrationRepo.UpdateStatusReserveSlot(ctx, reg, domain.StatusPendingPayment); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, reg.Status, domain.StatusPendingPayment)
	}

	category, err := s.categoryRepo.GetByID(ctx, reg.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category.Free() {
		return nil, fmt.Errorf("%w: category has no fee", domain.ErrInvalidInput)
	}
	athlete, err := s.athleteRepo.GetByID(ctx, reg.AthleteID)
	if err != nil {
		return nil, fmt.Errorf("get athlete: %w", err)
	}

	charge, err := s.provider.CreateCharge(ctx, *category.PriceCents, athlete.FullName, athlete.Document, reg.RegistrationNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &domain.Payment{
		RegistrationID: reg.ID,
		ExternalID:     charge.ExternalID,
		Reference:      reg.RegistrationNumber,
		AmountCents:    *category.PriceCents,
		QRPayload:      charge.QRPayload,
		Status:         domain.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.audit.Record(ctx, userID, "payment.started", domain.ResourceRegistrations, reg.ID,
		map[string]any{"payment_id": payment.ID, "amount_cents": payment.AmountCents})
	return payment, nil
}

func (s *paymentService) CheckPayment(ctx context.Context, userID, registrationID string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getOwned(ctx, userID, registrationID); err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetLatestByRegistrationID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if err := s.reconcile(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) HandleProviderNotification(ctx context.Context, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	payment, err := s.paymentRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get payment: %w", err)
	}
	return s.reconcile(ctx, payment)
}

// reconcile queries the provider for the payment's charge and applies the
// result to the payment and its registration. Safe to replay: a terminal
// payment is returned as-is, and a PAID result against an already-confirmed
// registration changes nothing.
func (s *paymentService) reconcile(ctx context.Context, payment *domain.Payment) error {
	if payment.Status.Terminal() {
		// A paid payment whose registration confirmation did not land
		// earlier is finished here; expired and cancelled stay settled.
		if payment.Status == domain.PaymentPaid {
			return s.confirmPaid(ctx, payment)
		}
		return nil
	}

	status, err := s.provider.GetChargeStatus(ctx, payment.ExternalID)
	if err != nil {
		// Transient failure: leave the payment and registration untouched.
		return err
	}

	switch status {
	case domain.ChargePending:
		return nil
	case domain.ChargePaid:
		return s.applyPaid(ctx, payment)
	case domain.ChargeExpired:
		return s.applyRejected(ctx, payment, domain.PaymentExpired)
	case domain.ChargeCancelled:
		return s.applyRejected(ctx, payment, domain.PaymentCancelled)
	default:
		return fmt.Errorf("%w: unknown charge status %q", domain.ErrPaymentUnavailable, status)
	}
}

func (s *paymentService) applyPaid(ctx context.Context, payment *domain.Payment) error {
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentPaid); err != nil {
		// ErrConflict means a concurrent reconciliation already settled the
		// payment; the confirmation below still runs either way.
		if !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("mark payment paid: %w", err)
		}
	}
	payment.Status = domain.PaymentPaid
	return s.confirmPaid(ctx, payment)
}

// confirmPaid drives the registration of a settled payment to confirmed.
// Replay-safe: an already-confirmed registration is left alone, and an
// invalid transition means the registration was resolved out of band.
func (s *paymentService) confirmPaid(ctx context.Context, payment *domain.Payment) error {
	reg, err := s.registrationRepo.GetByID(ctx, payment.RegistrationID)
	if err != nil {
		return fmt.Errorf("get registration: %w", err)
	}
	if reg.Status == domain.StatusConfirmed {
		return nil
	}

	if _, err := s.registrations.Confirm(ctx, payment.RegistrationID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	s.audit.Record(ctx, "system", "payment.paid", domain.ResourceRegistrations, payment.RegistrationID,
		map[string]any{"payment_id": payment.ID})
	return nil
}

func (s *paymentService) applyRejected(ctx context.Context, payment *domain.Payment, to domain.PaymentStatus) error {
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, to); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return fmt.Errorf("mark payment %s: %w", to, err)
	}
	payment.Status = to

	reg, err := s.registrationRepo.GetByID(ctx, payment.RegistrationID)
	if err != nil {
		return fmt.Errorf("get registration: %w", err)
	}
	// A terminal provider outcome never touches a confirmed registration.
	if reg.Status == domain.StatusConfirmed {
		return fmt.Errorf("%w: %s on confirmed registration", domain.ErrInvalidTransition, to)
	}
	if reg.Status != domain.StatusPendingPayment {
		return nil
	}
	if err := s.registrationRepo.UpdateStatusReleaseSlot(ctx, reg, domain.StatusPending); err != nil {
		return err
	}
	s.audit.Record(ctx, "system", "payment.rejected", domain.ResourceRegistrations, reg.ID,
		map[string]any{"payment_id": payment.ID, "payment_status": to})
	return fmt.Errorf("%w: charge %s", domain.ErrPaymentRejected, to)
}

func (s *paymentService) SweepAbandoned(ctx context.Context, abandonedBefore time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListPendingPaymentBefore(ctx, abandonedBefore)
	if err != nil {
		return 0, fmt.Errorf("list abandoned registrations: %w", err)
	}

	swept := 0
	for _, reg := range regs {
		payment, err := s.paymentRepo.GetLatestByRegistrationID(ctx, reg.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return swept, fmt.Errorf("get payment: %w", err)
		}
		if err == nil {
			switch payment.Status {
			case domain.PaymentPaid:
				// The money cleared but the confirmation never landed; finish
				// it instead of releasing a paid slot.
				if err := s.confirmPaid(ctx, payment); err != nil {
					return swept, err
				}
				continue
			case domain.PaymentPending:
				// One last provider check so a payment that settled during
				// the window is honored instead of swept.
				status, statusErr := s.provider.GetChargeStatus(ctx, payment.ExternalID)
				if statusErr == nil && status == domain.ChargePaid {
					if err := s.applyPaid(ctx, payment); err != nil {
						return swept, err
					}
					continue
				}
				if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentExpired); err != nil && !errors.Is(err, domain.ErrConflict) {
					return swept, fmt.Errorf("expire payment: %w", err)
				}
			}
		}

		if err := s.registrationRepo.UpdateStatusReleaseSlot(ctx, reg, domain.StatusPending); err != nil {
			// Someone paid or cancelled while sweeping; skip it.
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return swept, err
		}
		s.audit.Record(ctx, "system", "payment.swept", domain.ResourceRegistrations, reg.ID, nil)
		swept++
	}
	return swept, nil
}
