package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barberbook-backend/internal/catalog"
	"barberbook-backend/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCalendar mirrors the calendar's contract: reserve is first-wins,
// release is idempotent.
type fakeCalendar struct {
	mu   sync.Mutex
	open map[string]map[string]bool

	releases int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{open: make(map[string]map[string]bool)}
}

func (f *fakeCalendar) seed(date string, times ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.open[date]
	if !ok {
		day = make(map[string]bool)
		f.open[date] = day
	}
	for _, t := range times {
		day[t] = true
	}
}

func (f *fakeCalendar) Reserve(ctx context.Context, date, timeStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open[date][timeStr] {
		return slots.ErrSlotTaken
	}
	f.open[date][timeStr] = false
	return nil
}

func (f *fakeCalendar) Release(ctx context.Context, date, timeStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.open[date]
	if !ok {
		day = make(map[string]bool)
		f.open[date] = day
	}
	day[timeStr] = true
	f.releases++
	return nil
}

func (f *fakeCalendar) isOpen(date, timeStr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[date][timeStr]
}

type fakeRepo struct {
	mu    sync.Mutex
	items map[string]Appointment

	failInsert error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[string]Appointment)}
}

func (f *fakeRepo) Insert(ctx context.Context, appointment Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	for _, existing := range f.items {
		if existing.Date == appointment.Date && existing.Time == appointment.Time && existing.Status != StatusCancelled {
			return ErrSlotUnavailable
		}
	}
	f.items[appointment.ID] = appointment
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.items[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return appointment, nil
}

func (f *fakeRepo) Transition(ctx context.Context, id string, target Status) (Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.items[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	if !appointment.Status.CanTransitionTo(target) {
		return Appointment{}, ErrIllegalTransition
	}
	appointment.Status = target
	f.items[id] = appointment
	return appointment, nil
}

func (f *fakeRepo) SetReminderSent(ctx context.Context, id string) (Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.items[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	if appointment.Status == StatusCancelled {
		return Appointment{}, ErrIllegalTransition
	}
	appointment.ReminderSent = true
	f.items[id] = appointment
	return appointment, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit int64) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Appointment, 0)
	for _, appointment := range f.items {
		if filter.Date != "" && appointment.Date != filter.Date {
			continue
		}
		if filter.Status != "" && appointment.Status != filter.Status {
			continue
		}
		out = append(out, appointment)
	}
	return out, nil
}

func (f *fakeRepo) ListByEmail(ctx context.Context, email string, limit int64) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Appointment, 0)
	for _, appointment := range f.items {
		if appointment.Email == email {
			out = append(out, appointment)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListConfirmedInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Appointment, 0)
	for _, appointment := range f.items {
		if appointment.Status == StatusConfirmed && appointment.Date >= from && appointment.Date <= to {
			out = append(out, appointment)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	services map[string]catalog.Service
}

func (f *fakeCatalog) GetByID(ctx context.Context, id string) (catalog.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return catalog.Service{}, catalog.ErrNotFound
	}
	return svc, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{services: map[string]catalog.Service{
		"svc1": {ID: "svc1", Name: "Haircut", Slug: "haircut", Price: 5000, DurationMinutes: 30, Active: true},
		"svc2": {ID: "svc2", Name: "Beard Trim", Slug: "beard-trim", Price: 3000, DurationMinutes: 20, Active: false},
	}}
}

func bookRequest(timeStr string) BookRequest {
	return BookRequest{
		ServiceID:     "svc1",
		Name:          "John Doe",
		Email:         "John@Example.com",
		Phone:         "+5511999990000",
		Date:          "2025-06-10",
		Time:          timeStr,
		PaymentMethod: PaymentPix,
	}
}

func TestBook(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "09:00", "10:00")
	repo := newFakeRepo()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	appointment, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, appointment.ID)
	assert.Equal(t, StatusPending, appointment.Status)
	assert.Equal(t, "john@example.com", appointment.Email)
	assert.Equal(t, "Haircut", appointment.Service.Name)
	assert.Equal(t, 5000, appointment.Service.Price)
	assert.False(t, calendar.isOpen("2025-06-10", "10:00"))
	assert.True(t, calendar.isOpen("2025-06-10", "09:00"))
}

func TestBookSlotTaken(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	repo := newFakeRepo()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	_, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), bookRequest("10:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Len(t, repo.items, 1)
}

func TestBookUnknownSlot(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "09:00")
	svc := NewService(newFakeRepo(), calendar, testCatalog(), nil, time.UTC)

	_, err := svc.Book(context.Background(), bookRequest("11:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookInactiveService(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	svc := NewService(newFakeRepo(), calendar, testCatalog(), nil, time.UTC)

	req := bookRequest("10:00")
	req.ServiceID = "svc2"
	_, err := svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	// The catalog lookup failed before the slot was touched.
	assert.True(t, calendar.isOpen("2025-06-10", "10:00"))
}

func TestBookUnknownService(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	svc := NewService(newFakeRepo(), calendar, testCatalog(), nil, time.UTC)

	req := bookRequest("10:00")
	req.ServiceID = "missing"
	_, err := svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestBookReleasesSlotWhenInsertFails(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	repo := newFakeRepo()
	repo.failInsert = errors.New("write failed")
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	_, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.Error(t, err)
	assert.True(t, calendar.isOpen("2025-06-10", "10:00"))
	assert.Equal(t, 1, calendar.releases)
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	repo := newFakeRepo()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), bookRequest("10:00"))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, won)
	assert.Len(t, repo.items, 1)
}

func TestLifecycle(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	repo := newFakeRepo()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	appointment, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	// Confirming keeps the slot consumed.
	assert.False(t, calendar.isOpen("2025-06-10", "10:00"))

	_, err = svc.Confirm(context.Background(), appointment.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	cancelled, err := svc.Cancel(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.True(t, calendar.isOpen("2025-06-10", "10:00"))

	// Cancelled is terminal.
	_, err = svc.Confirm(context.Background(), appointment.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.Cancel(context.Background(), appointment.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, 1, calendar.releases)
}

func TestCancelPending(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	svc := NewService(newFakeRepo(), calendar, testCatalog(), nil, time.UTC)

	appointment, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.True(t, calendar.isOpen("2025-06-10", "10:00"))
}

func TestTransitionUnknownID(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeCalendar(), testCatalog(), nil, time.UTC)

	_, err := svc.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReminderSent(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2025-06-10", "10:00")
	repo := newFakeRepo()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)

	appointment, err := svc.Book(context.Background(), bookRequest("10:00"))
	require.NoError(t, err)

	flagged, err := svc.MarkReminderSent(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.True(t, flagged.ReminderSent)

	// Flagging again is a no-op, not an error.
	flagged, err = svc.MarkReminderSent(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.True(t, flagged.ReminderSent)

	_, err = svc.Cancel(context.Background(), appointment.ID)
	require.NoError(t, err)
	_, err = svc.MarkReminderSent(context.Background(), appointment.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
