package finance

import (
	"context"
	"errors"
	"strings"
	"time"

	"barberbook-backend/internal/booking"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentSource feeds the reconciler the confirmed appointments whose
// revenue should appear in the ledger.
type AppointmentSource interface {
	ListConfirmedInRange(ctx context.Context, from, to string) ([]booking.Appointment, error)
}

type Service struct {
	repo         Repository
	appointments AppointmentSource
	location     *time.Location
}

func NewService(repo Repository, appointments AppointmentSource, location *time.Location) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		location:     location,
	}
}

// SyncFromAppointments creates one revenue transaction per confirmed
// appointment in [from, to] that has none yet, priced from the appointment's
// service snapshot. Reruns over overlapping ranges create nothing new, and a
// concurrent sync losing the unique-index race is counted as already done.
func (s *Service) SyncFromAppointments(ctx context.Context, from, to string) (int, error) {
	appointments, err := s.appointments.ListConfirmedInRange(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(appointments) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(appointments))
	for _, appointment := range appointments {
		ids = append(ids, appointment.ID)
	}
	synced, err := s.repo.SyncedSourceIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	created := 0
	now := time.Now().In(s.location)
	for _, appointment := range appointments {
		if synced[appointment.ID] {
			continue
		}
		transaction := Transaction{
			ID:                  primitive.NewObjectID().Hex(),
			Type:                TypeRevenue,
			Amount:              appointment.Service.Price,
			Date:                appointment.Date,
			PaymentMethod:       appointment.PaymentMethod,
			SourceAppointmentID: appointment.ID,
			CreatedAt:           now,
		}
		if err := s.repo.Insert(ctx, transaction); err != nil {
			if errors.Is(err, ErrAlreadySynced) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// AddExpense appends a manually entered expense; it never touches
// appointments.
func (s *Service) AddExpense(ctx context.Context, req AddExpenseRequest) (Transaction, error) {
	transaction := Transaction{
		ID:        primitive.NewObjectID().Hex(),
		Type:      TypeExpense,
		Amount:    req.Amount,
		Date:      req.Date,
		Category:  strings.TrimSpace(req.Category),
		CreatedAt: time.Now().In(s.location),
	}
	if err := s.repo.Insert(ctx, transaction); err != nil {
		return Transaction{}, err
	}
	return transaction, nil
}

func (s *Service) Summarize(ctx context.Context, from, to string) (Summary, error) {
	transactions, err := s.repo.ListInRange(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(transactions), nil
}

func (s *Service) ListInRange(ctx context.Context, from, to string) ([]Transaction, error) {
	return s.repo.ListInRange(ctx, from, to)
}

// BuildSummary is a pure aggregation over a transaction slice.
func BuildSummary(transactions []Transaction) Summary {
	summary := Summary{
		RevenueByPaymentMethod: make(map[string]int),
	}
	for _, transaction := range transactions {
		switch transaction.Type {
		case TypeRevenue:
			summary.TotalRevenue += transaction.Amount
			if transaction.PaymentMethod != "" {
				summary.RevenueByPaymentMethod[transaction.PaymentMethod] += transaction.Amount
			}
		case TypeExpense:
			summary.TotalExpenses += transaction.Amount
		}
	}
	summary.NetProfit = summary.TotalRevenue - summary.TotalExpenses
	if summary.TotalRevenue > 0 {
		summary.ProfitMargin = float64(summary.NetProfit) / float64(summary.TotalRevenue)
	}
	return summary
}
