package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceportal/internal/domain"
)

type adminFixture struct {
	*registrationFixture
	service domain.AdminService
}

func newAdminFixture(guard domain.PermissionGuard) *adminFixture {
	base := newRegistrationFixture()
	svc := NewAdminService(base.registrations, base.categories, base.athletes, base.service,
		guard, base.audit, testTimeout)
	return &adminFixture{registrationFixture: base, service: svc}
}

// underReview creates a registration sitting in under_review.
func (fx *adminFixture) underReview(t *testing.T) *domain.Registration {
	t.Helper()
	event := fx.addEvent(2026)
	c := fx.addCategory(event.ID, 100, nil)
	c.RequiresResidencyProof = true

	athlete := adultAthlete(1990)
	athlete.Resident = true
	reg, err := fx.registrationFixture.service.SignUp(context.Background(), "user-1", domain.SignUpInput{
		EventID:      event.ID,
		CategorySlug: "10k-open",
		Athlete:      athlete,
	})
	require.NoError(t, err)
	reg, err = fx.registrationFixture.service.SubmitDocuments(context.Background(), "user-1", reg.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnderReview, reg.Status)
	return reg
}

func TestReviewApproveConfirmsAndAllocatesBib(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	reg := fx.underReview(t)

	approved, err := fx.service.ReviewRegistration(context.Background(), "organizer-1", reg.ID, domain.ReviewApprove, "documents ok")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, approved.Status)
	require.NotNil(t, approved.BibNumber)

	category, _ := fx.categories.GetBySlug(context.Background(), reg.EventID, "10k-open")
	assert.Equal(t, 0, category.ReservedCount)
	assert.Equal(t, 1, category.ConfirmedCount)
	assert.Contains(t, fx.audit.actions, "registration.reviewed")
}

func TestReviewRejectReleasesSlot(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	reg := fx.underReview(t)

	rejected, err := fx.service.ReviewRegistration(context.Background(), "organizer-1", reg.ID, domain.ReviewReject, "proof illegible")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Nil(t, rejected.BibNumber)

	category, _ := fx.categories.GetBySlug(context.Background(), reg.EventID, "10k-open")
	assert.Equal(t, 0, category.ReservedCount)
	assert.Equal(t, 0, category.ConfirmedCount)
}

func TestReviewRequiresUnderReviewStatus(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	event := fx.addEvent(2026)
	fx.addCategory(event.ID, 100, int64Ptr(15000))

	reg, err := fx.registrationFixture.service.SignUp(context.Background(), "user-1", domain.SignUpInput{
		EventID:      event.ID,
		CategorySlug: "10k-open",
		Athlete:      adultAthlete(1990),
	})
	require.NoError(t, err)

	_, err = fx.service.ReviewRegistration(context.Background(), "organizer-1", reg.ID, domain.ReviewApprove, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPermissionDeniedAbortsBeforeMutation(t *testing.T) {
	fx := newAdminFixture(denyGuard{})
	reg := fx.underReview(t)

	_, err := fx.service.ReviewRegistration(context.Background(), "intruder", reg.ID, domain.ReviewApprove, "")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	after, err := fx.registrations.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, after.Status, "denied check must not change state")
	assert.NotContains(t, fx.audit.actions, "registration.reviewed")
}

func TestOverrideStatusBypassesTransitionTable(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	event := fx.addEvent(2026)
	fx.addCategory(event.ID, 100, int64Ptr(15000))

	reg, err := fx.registrationFixture.service.SignUp(context.Background(), "user-1", domain.SignUpInput{
		EventID:      event.ID,
		CategorySlug: "10k-open",
		Athlete:      adultAthlete(1990),
	})
	require.NoError(t, err)
	_, err = fx.registrationFixture.service.Cancel(context.Background(), "user-1", reg.ID)
	require.NoError(t, err)

	// cancelled is terminal for athletes; only an override can leave it.
	restored, err := fx.service.OverrideStatus(context.Background(), "organizer-1", reg.ID, domain.StatusPendingPayment, "charged back in error")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, restored.Status)
	assert.Contains(t, fx.audit.actions, "registration.status_overridden")
}

func TestOverrideStatusRejectsUnknownStatus(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	reg := fx.underReview(t)

	_, err := fx.service.OverrideStatus(context.Background(), "organizer-1", reg.ID, domain.Status("teleported"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateCategoryCapacityFloor(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	event := fx.addEvent(2026)
	category := fx.addCategory(event.ID, 100, int64Ptr(15000))

	_, err := fx.registrationFixture.service.SignUp(context.Background(), "user-1", domain.SignUpInput{
		EventID:      event.ID,
		CategorySlug: "10k-open",
		Athlete:      adultAthlete(1990),
	})
	require.NoError(t, err)

	updated, err := fx.service.UpdateCategoryCapacity(context.Background(), "organizer-1", category.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.TotalSlots)

	// Shrinking below the allocated count is refused.
	_, err = fx.service.UpdateCategoryCapacity(context.Background(), "organizer-1", category.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListEventRegistrationsJoinsAthletes(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	event := fx.addEvent(2026)
	fx.addCategory(event.ID, 100, int64Ptr(15000))

	_, err := fx.registrationFixture.service.SignUp(context.Background(), "user-1", domain.SignUpInput{
		EventID:      event.ID,
		CategorySlug: "10k-open",
		Athlete:      adultAthlete(1990),
	})
	require.NoError(t, err)

	rows, total, err := fx.service.ListEventRegistrations(context.Background(), "organizer-1", event.ID,
		domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Maria Silva", rows[0].Athlete.FullName)
}

func TestOverrideStatusAwayFromConfirmedRetiresBib(t *testing.T) {
	fx := newAdminFixture(allowAllGuard{})
	reg := fx.underReview(t)

	confirmed, err := fx.service.ReviewRegistration(context.Background(), "organizer-1", reg.ID, domain.ReviewApprove, "documents ok")
	require.NoError(t, err)
	require.NotNil(t, confirmed.BibNumber)

	overridden, err := fx.service.OverrideStatus(context.Background(), "organizer-1", reg.ID, domain.StatusCancelled, "entered by mistake")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, overridden.Status)
	assert.Nil(t, overridden.BibNumber, "a registration outside confirmed carries no bib")

	category, err := fx.categories.GetBySlug(context.Background(), reg.EventID, "10k-open")
	require.NoError(t, err)
	assert.Equal(t, 0, category.ConfirmedCount)
	assert.Equal(t, 0, category.ReservedCount)
}
