package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// transitions is the whole lifecycle. Cancelled is terminal; pending is only
// ever set at creation.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// statusesAllowing lists the states a transition to target may start from.
// Repositories use it as the guard filter of the conditional update.
func statusesAllowing(target Status) []Status {
	froms := make([]Status, 0, 2)
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == target {
				froms = append(froms, from)
			}
		}
	}
	return froms
}

const (
	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentPix  = "pix"
)

// ServiceSnapshot is a value copy of the catalog entry taken at booking time,
// so later catalog edits never rewrite past appointments.
type ServiceSnapshot struct {
	ServiceID       string `bson:"serviceId" json:"serviceId"`
	Name            string `bson:"name" json:"name"`
	Price           int    `bson:"price" json:"price"`
	DurationMinutes int    `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
}

type Appointment struct {
	ID            string          `bson:"_id,omitempty" json:"id"`
	ClientName    string          `bson:"clientName" json:"clientName"`
	Email         string          `bson:"email" json:"email"`
	Phone         string          `bson:"phone" json:"phone"`
	Service       ServiceSnapshot `bson:"service" json:"service"`
	Date          string          `bson:"date" json:"date"`
	Time          string          `bson:"time" json:"time"`
	PaymentMethod string          `bson:"paymentMethod" json:"paymentMethod"`
	Status        Status          `bson:"status" json:"status"`
	ReminderSent  bool            `bson:"reminderSent" json:"reminderSent"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
}

type BookRequest struct {
	ServiceID     string `json:"serviceId" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,phone"`
	Date          string `json:"date" validate:"required,date"`
	Time          string `json:"time" validate:"required,clock"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card pix"`
}

type LookupRequest struct {
	Email string `json:"email" validate:"required,email"`
}
