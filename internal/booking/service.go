package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"barberbook-backend/internal/catalog"
	"barberbook-backend/internal/slots"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SlotCalendar is the slice of the slot calendar the coordinator needs.
type SlotCalendar interface {
	Reserve(ctx context.Context, date, timeStr string) error
	Release(ctx context.Context, date, timeStr string) error
}

// ServiceCatalog resolves the service being booked so its price and name can
// be snapshotted.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id string) (catalog.Service, error)
}

type Notifier interface {
	SendBookingReceived(ctx context.Context, appointment Appointment) (string, error)
	SendBookingConfirmed(ctx context.Context, appointment Appointment) (string, error)
	SendBookingCancelled(ctx context.Context, appointment Appointment) (string, error)
	SendBookingReminder(ctx context.Context, appointment Appointment) (string, error)
}

// Service is the booking coordinator and lifecycle manager: the only writer
// of appointments and the only caller of the calendar's reserve/release.
type Service struct {
	repo     Repository
	calendar SlotCalendar
	catalog  ServiceCatalog
	notifier Notifier
	location *time.Location
}

func NewService(repo Repository, calendar SlotCalendar, serviceCatalog ServiceCatalog, notifier Notifier, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		calendar: calendar,
		catalog:  serviceCatalog,
		notifier: notifier,
		location: location,
	}
}

// Book reserves the slot first and only then creates the appointment, so a
// lost race surfaces as ErrSlotUnavailable with nothing written. If the
// insert fails after the reserve, the slot is released again before the
// error is returned.
func (s *Service) Book(ctx context.Context, req BookRequest) (Appointment, error) {
	svc, err := s.catalog.GetByID(ctx, strings.TrimSpace(req.ServiceID))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Appointment{}, ErrServiceNotFound
		}
		return Appointment{}, err
	}
	if !svc.Active {
		return Appointment{}, ErrServiceNotFound
	}

	if err := s.calendar.Reserve(ctx, req.Date, req.Time); err != nil {
		if errors.Is(err, slots.ErrSlotTaken) {
			return Appointment{}, ErrSlotUnavailable
		}
		return Appointment{}, err
	}

	appointment := Appointment{
		ID:         primitive.NewObjectID().Hex(),
		ClientName: strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      strings.TrimSpace(req.Phone),
		Service: ServiceSnapshot{
			ServiceID:       svc.ID,
			Name:            svc.Name,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
		},
		Date:          req.Date,
		Time:          req.Time,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPending,
		CreatedAt:     time.Now().In(s.location),
	}

	if err := s.repo.Insert(ctx, appointment); err != nil {
		// Compensate: the reserved slot must not stay orphaned.
		if relErr := s.calendar.Release(ctx, req.Date, req.Time); relErr != nil {
			return Appointment{}, errors.Join(err, relErr)
		}
		return Appointment{}, err
	}

	return appointment, nil
}

// Confirm moves a pending appointment to confirmed. The slot stays consumed.
func (s *Service) Confirm(ctx context.Context, id string) (Appointment, error) {
	return s.repo.Transition(ctx, strings.TrimSpace(id), StatusConfirmed)
}

// Cancel moves a pending or confirmed appointment to cancelled and gives the
// slot back. The conditional transition fires at most once per appointment,
// so the release cannot be doubled by a repeated cancel.
func (s *Service) Cancel(ctx context.Context, id string) (Appointment, error) {
	appointment, err := s.repo.Transition(ctx, strings.TrimSpace(id), StatusCancelled)
	if err != nil {
		return Appointment{}, err
	}

	if err := s.calendar.Release(ctx, appointment.Date, appointment.Time); err != nil {
		// The status change stuck; surface the failed restore so the caller
		// can re-open the slot by hand.
		return appointment, err
	}
	return appointment, nil
}

// MarkReminderSent flags the appointment; idempotent and independent of the
// status machine, but terminal appointments reject it.
func (s *Service) MarkReminderSent(ctx context.Context, id string) (Appointment, error) {
	return s.repo.SetReminderSent(ctx, strings.TrimSpace(id))
}

func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit int64) ([]Appointment, error) {
	return s.repo.List(ctx, filter, limit)
}

func (s *Service) Lookup(ctx context.Context, email string, limit int64) ([]Appointment, error) {
	return s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), limit)
}

func (s *Service) NotifyBooked(ctx context.Context, appointment Appointment) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingReceived(ctx, appointment)
	return err
}

func (s *Service) NotifyConfirmed(ctx context.Context, appointment Appointment) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingConfirmed(ctx, appointment)
	return err
}

func (s *Service) NotifyCancelled(ctx context.Context, appointment Appointment) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingCancelled(ctx, appointment)
	return err
}

func (s *Service) NotifyReminder(ctx context.Context, appointment Appointment) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingReminder(ctx, appointment)
	return err
}
