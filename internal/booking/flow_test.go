package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"barberbook-backend/internal/booking"
	"barberbook-backend/internal/catalog"
	"barberbook-backend/internal/finance"
	"barberbook-backend/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The flow test wires booking and finance together over in-memory stores and
// walks one appointment through its whole life: book, lose a race, confirm,
// reconcile revenue, cancel, reconcile again.

type memCalendar struct {
	mu   sync.Mutex
	open map[string]map[string]bool
}

func (m *memCalendar) Reserve(ctx context.Context, date, timeStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open[date][timeStr] {
		return slots.ErrSlotTaken
	}
	m.open[date][timeStr] = false
	return nil
}

func (m *memCalendar) Release(ctx context.Context, date, timeStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open[date] == nil {
		m.open[date] = make(map[string]bool)
	}
	m.open[date][timeStr] = true
	return nil
}

type memRepo struct {
	mu    sync.Mutex
	items map[string]booking.Appointment
}

func (m *memRepo) Insert(ctx context.Context, a booking.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = a
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return booking.Appointment{}, booking.ErrNotFound
	}
	return a, nil
}

func (m *memRepo) Transition(ctx context.Context, id string, target booking.Status) (booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return booking.Appointment{}, booking.ErrNotFound
	}
	if !a.Status.CanTransitionTo(target) {
		return booking.Appointment{}, booking.ErrIllegalTransition
	}
	a.Status = target
	m.items[id] = a
	return a, nil
}

func (m *memRepo) SetReminderSent(ctx context.Context, id string) (booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return booking.Appointment{}, booking.ErrNotFound
	}
	a.ReminderSent = true
	m.items[id] = a
	return a, nil
}

func (m *memRepo) List(ctx context.Context, filter booking.ListFilter, limit int64) ([]booking.Appointment, error) {
	return nil, nil
}

func (m *memRepo) ListByEmail(ctx context.Context, email string, limit int64) ([]booking.Appointment, error) {
	return nil, nil
}

func (m *memRepo) ListConfirmedInRange(ctx context.Context, from, to string) ([]booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]booking.Appointment, 0)
	for _, a := range m.items {
		if a.Status == booking.StatusConfirmed && a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	return out, nil
}

type memLedger struct {
	rows []finance.Transaction
}

func (m *memLedger) Insert(ctx context.Context, tx finance.Transaction) error {
	for _, row := range m.rows {
		if tx.SourceAppointmentID != "" && row.SourceAppointmentID == tx.SourceAppointmentID {
			return finance.ErrAlreadySynced
		}
	}
	m.rows = append(m.rows, tx)
	return nil
}

func (m *memLedger) ListInRange(ctx context.Context, from, to string) ([]finance.Transaction, error) {
	out := make([]finance.Transaction, 0)
	for _, row := range m.rows {
		if row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memLedger) SyncedSourceIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	synced := make(map[string]bool)
	for _, row := range m.rows {
		for _, id := range ids {
			if row.SourceAppointmentID == id {
				synced[id] = true
			}
		}
	}
	return synced, nil
}

type memCatalog struct {
	svc catalog.Service
}

func (m *memCatalog) GetByID(ctx context.Context, id string) (catalog.Service, error) {
	if id != m.svc.ID {
		return catalog.Service{}, catalog.ErrNotFound
	}
	return m.svc, nil
}

func TestBookingToRevenueFlow(t *testing.T) {
	ctx := context.Background()

	calendar := &memCalendar{open: map[string]map[string]bool{
		"2025-06-10": {"09:00": true, "10:00": true},
	}}
	repo := &memRepo{items: make(map[string]booking.Appointment)}
	ledger := &memLedger{}
	shop := &memCatalog{svc: catalog.Service{ID: "svc1", Name: "Haircut", Price: 5000, Active: true}}

	bookings := booking.NewService(repo, calendar, shop, nil, time.UTC)
	ledgerSvc := finance.NewService(ledger, repo, time.UTC)

	req := booking.BookRequest{
		ServiceID:     "svc1",
		Name:          "John Doe",
		Email:         "john@example.com",
		Phone:         "+5511999990000",
		Date:          "2025-06-10",
		Time:          "10:00",
		PaymentMethod: booking.PaymentPix,
	}

	appointment, err := bookings.Book(ctx, req)
	require.NoError(t, err)

	// A second booking for the same slot loses.
	_, err = bookings.Book(ctx, req)
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	// Nothing to reconcile while the appointment is pending.
	created, err := ledgerSvc.SyncFromAppointments(ctx, "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	_, err = bookings.Confirm(ctx, appointment.ID)
	require.NoError(t, err)

	created, err = ledgerSvc.SyncFromAppointments(ctx, "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	summary, err := ledgerSvc.Summarize(ctx, "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, 5000, summary.TotalRevenue)
	assert.Equal(t, 5000, summary.RevenueByPaymentMethod["pix"])

	// Cancelling puts the slot back; the booked revenue stays on the books
	// and a rerun does not duplicate it.
	_, err = bookings.Cancel(ctx, appointment.ID)
	require.NoError(t, err)
	assert.True(t, calendar.open["2025-06-10"]["10:00"])

	created, err = ledgerSvc.SyncFromAppointments(ctx, "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, ledger.rows, 1)

	// The freed slot can be booked again.
	again, err := bookings.Book(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, appointment.ID, again.ID)
}
