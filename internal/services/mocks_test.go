package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"raceportal/internal/domain"
)

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID    map[string]*domain.Event
	nextBib map[string]int
	nextID  int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: map[string]*domain.Event{}, nextBib: map[string]int{}, nextID: 1}
}

func (f *fakeEventRepo) add(ev *domain.Event) *domain.Event {
	if ev.ID == "" {
		ev.ID = "event-" + strconv.Itoa(f.nextID)
		f.nextID++
	}
	f.byID[ev.ID] = ev
	return ev
}

func (f *fakeEventRepo) Create(ctx context.Context, ev *domain.Event) error {
	f.add(ev)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ev, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (f *fakeEventRepo) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	for _, ev := range f.byID {
		if ev.Slug == slug {
			return ev, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	out := []*domain.Event{}
	for _, ev := range f.byID {
		out = append(out, ev)
	}
	return out, nil
}

// fakeCategoryRepo is an in-memory CategoryRepository; the registration fake
// mutates its counters the way the postgres transactions do.
type fakeCategoryRepo struct {
	byID   map[string]*domain.Category
	nextID int
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{byID: map[string]*domain.Category{}, nextID: 1}
}

func (f *fakeCategoryRepo) add(c *domain.Category) *domain.Category {
	if c.ID == "" {
		c.ID = "category-" + strconv.Itoa(f.nextID)
		f.nextID++
	}
	f.byID[c.ID] = c
	return c
}

func (f *fakeCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	f.add(c)
	return nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) GetBySlug(ctx context.Context, eventID, slug string) (*domain.Category, error) {
	for _, c := range f.byID {
		if c.EventID == eventID && c.Slug == slug {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCategoryRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range f.byID {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) UpdateTotalSlots(ctx context.Context, id string, totalSlots int) (*domain.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if totalSlots < c.ReservedCount+c.ConfirmedCount {
		return nil, fmt.Errorf("%w: total slots below allocated count", domain.ErrInvalidInput)
	}
	c.TotalSlots = totalSlots
	return c, nil
}

// fakeAthleteRepo is an in-memory AthleteRepository.
type fakeAthleteRepo struct {
	byID   map[string]*domain.Athlete
	nextID int
}

func newFakeAthleteRepo() *fakeAthleteRepo {
	return &fakeAthleteRepo{byID: map[string]*domain.Athlete{}, nextID: 1}
}

func (f *fakeAthleteRepo) add(a *domain.Athlete) *domain.Athlete {
	if a.ID == "" {
		a.ID = "athlete-" + strconv.Itoa(f.nextID)
		f.nextID++
	}
	f.byID[a.ID] = a
	return a
}

func (f *fakeAthleteRepo) Create(ctx context.Context, a *domain.Athlete) error {
	f.add(a)
	return nil
}

func (f *fakeAthleteRepo) GetByID(ctx context.Context, id string) (*domain.Athlete, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAthleteRepo) GetByUserID(ctx context.Context, userID string) (*domain.Athlete, error) {
	for _, a := range f.byID {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAthleteRepo) Update(ctx context.Context, a *domain.Athlete) error {
	if _, ok := f.byID[a.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[a.ID] = a
	return nil
}

// fakeRegistrationRepo mirrors the transactional coupling of the postgres
// store: Create takes a slot, Confirm converts it and allocates a bib, the
// release variants return it.
type fakeRegistrationRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.Registration
	categories *fakeCategoryRepo
	events     *fakeEventRepo
	nextID     int

	createErr  error
	confirmErr error
}

func newFakeRegistrationRepo(categories *fakeCategoryRepo, events *fakeEventRepo) *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		byID:       map[string]*domain.Registration{},
		categories: categories,
		events:     events,
		nextID:     1,
	}
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c, ok := f.categories.byID[reg.CategoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.ReservedCount+c.ConfirmedCount >= c.TotalSlots {
		return domain.ErrCapacityExceeded
	}
	for _, existing := range f.byID {
		if existing.EventID == reg.EventID && existing.AthleteID == reg.AthleteID {
			return domain.ErrDuplicateRegistration
		}
	}
	c.ReservedCount++
	reg.ID = "registration-" + strconv.Itoa(f.nextID)
	f.nextID++
	reg.Version = 1
	cp := *reg
	f.byID[reg.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (f *fakeRegistrationRepo) GetByEventAndAthlete(ctx context.Context, eventID, athleteID string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.byID {
		if reg.EventID == eventID && reg.AthleteID == athleteID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) ListByAthleteID(ctx context.Context, athleteID string) ([]*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Registration{}
	for _, reg := range f.byID {
		if reg.AthleteID == athleteID {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) ListByEventID(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Registration{}
	for _, reg := range f.byID {
		if reg.EventID == eventID {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRegistrationRepo) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time) ([]*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Registration{}
	for _, reg := range f.byID {
		if reg.Status == domain.StatusPendingPayment && reg.UpdatedAt.Before(cutoff) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) writeStatus(reg *domain.Registration, to domain.Status) error {
	stored, ok := f.byID[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != reg.Version {
		return domain.ErrConflict
	}
	stored.Status = to
	stored.Version++
	stored.UpdatedAt = time.Now()
	reg.Status = to
	reg.Version = stored.Version
	return nil
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeStatus(reg, to)
}

func (f *fakeRegistrationRepo) UpdateStatusReleaseSlot(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeStatus(reg, to); err != nil {
		return err
	}
	if c, ok := f.categories.byID[reg.CategoryID]; ok && c.ReservedCount > 0 {
		c.ReservedCount--
	}
	return nil
}

func (f *fakeRegistrationRepo) UpdateStatusReserveSlot(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories.byID[reg.CategoryID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.ReservedCount+c.ConfirmedCount >= c.TotalSlots {
		return domain.ErrCapacityExceeded
	}
	if err := f.writeStatus(reg, to); err != nil {
		return err
	}
	c.ReservedCount++
	return nil
}

func (f *fakeRegistrationRepo) Confirm(ctx context.Context, reg *domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	stored, ok := f.byID[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != reg.Version {
		return domain.ErrConflict
	}
	c, ok := f.categories.byID[reg.CategoryID]
	if !ok || c.ReservedCount == 0 {
		return domain.ErrConflict
	}
	c.ReservedCount--
	c.ConfirmedCount++

	f.events.nextBib[reg.EventID]++
	bib := f.events.nextBib[reg.EventID]

	stored.Status = domain.StatusConfirmed
	stored.BibNumber = &bib
	stored.Version++
	stored.UpdatedAt = time.Now()
	reg.Status = domain.StatusConfirmed
	reg.BibNumber = &bib
	reg.Version = stored.Version
	return nil
}

func (f *fakeRegistrationRepo) OverrideStatus(ctx context.Context, reg *domain.Registration, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	c := f.categories.byID[reg.CategoryID]
	if c != nil {
		switch {
		case stored.Status.HoldsReservation() && !to.HoldsReservation() && to != domain.StatusConfirmed:
			c.ReservedCount--
		case stored.Status == domain.StatusConfirmed && to.HoldsReservation():
			c.ConfirmedCount--
			c.ReservedCount++
		case stored.Status == domain.StatusConfirmed && to != domain.StatusConfirmed:
			c.ConfirmedCount--
		case !stored.Status.HoldsReservation() && stored.Status != domain.StatusConfirmed && to.HoldsReservation():
			c.ReservedCount++
		}
	}
	if to == domain.StatusConfirmed && stored.BibNumber == nil {
		f.events.nextBib[reg.EventID]++
		bib := f.events.nextBib[reg.EventID]
		stored.BibNumber = &bib
		reg.BibNumber = &bib
	}
	if to != domain.StatusConfirmed {
		stored.BibNumber = nil
		reg.BibNumber = nil
	}
	stored.Status = to
	stored.Version++
	reg.Status = to
	reg.Version = stored.Version
	return nil
}

// fakePaymentRepo is an in-memory PaymentRepository.
type fakePaymentRepo struct {
	byID   map[string]*domain.Payment
	nextID int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: map[string]*domain.Payment{}, nextID: 1}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	p.ID = "payment-" + strconv.Itoa(f.nextID)
	f.nextID++
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	for _, p := range f.byID {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetOpenByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	for _, p := range f.byID {
		if p.RegistrationID == registrationID && p.Status == domain.PaymentPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetLatestByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	var latest *domain.Payment
	for _, p := range f.byID {
		if p.RegistrationID != registrationID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status.Terminal() {
		return domain.ErrConflict
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// fakeProvider is a scripted PaymentProvider.
type fakeProvider struct {
	charges     map[string]domain.ChargeStatus
	createErr   error
	statusErr   error
	nextCharge  int
	statusCalls int
	createdRefs []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{charges: map[string]domain.ChargeStatus{}, nextCharge: 1}
}

func (f *fakeProvider) CreateCharge(ctx context.Context, amountCents int64, payerName, payerDocument, reference string) (*domain.Charge, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := "charge-" + strconv.Itoa(f.nextCharge)
	f.nextCharge++
	f.charges[id] = domain.ChargePending
	f.createdRefs = append(f.createdRefs, reference)
	return &domain.Charge{ExternalID: id, QRPayload: "qr-" + id}, nil
}

func (f *fakeProvider) GetChargeStatus(ctx context.Context, externalID string) (domain.ChargeStatus, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return "", f.statusErr
	}
	status, ok := f.charges[externalID]
	if !ok {
		return "", fmt.Errorf("%w: unknown charge", domain.ErrPaymentUnavailable)
	}
	return status, nil
}

// allowAllGuard grants everything; denyGuard denies everything.
type allowAllGuard struct{}

func (allowAllGuard) Require(ctx context.Context, userID, resource, action string) error { return nil }

type denyGuard struct{}

func (denyGuard) Require(ctx context.Context, userID, resource, action string) error {
	return domain.ErrPermissionDenied
}

// recordingAudit captures recorded actions in order.
type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(ctx context.Context, actorID, action, resource, resourceID string, payload any) {
	r.actions = append(r.actions, action)
}

func (r *recordingAudit) List(ctx context.Context, resource string, p domain.PaginationParams) ([]*domain.AuditEntry, int, error) {
	return nil, 0, nil
}

// recordingMailer captures sent confirmation emails.
type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendRegistrationConfirmed(ctx context.Context, to string, data *domain.ConfirmationEmailData) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func intPtrS(v int) *int      { return &v }
func int64Ptr(v int64) *int64 { return &v }
