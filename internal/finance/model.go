package finance

import "time"

const (
	TypeRevenue = "revenue"
	TypeExpense = "expense"
)

// Transaction is one ledger row. Revenue rows derived from appointments carry
// the source appointment id; at most one revenue row may exist per source,
// which is what keeps reconciliation replays safe.
type Transaction struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	Type                string    `bson:"type" json:"type"`
	Amount              int       `bson:"amount" json:"amount"`
	Date                string    `bson:"date" json:"date"`
	Category            string    `bson:"category,omitempty" json:"category,omitempty"`
	PaymentMethod       string    `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	SourceAppointmentID string    `bson:"sourceAppointmentId,omitempty" json:"sourceAppointmentId,omitempty"`
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
}

type Summary struct {
	TotalRevenue           int            `json:"totalRevenue"`
	TotalExpenses          int            `json:"totalExpenses"`
	NetProfit              int            `json:"netProfit"`
	ProfitMargin           float64        `json:"profitMargin"`
	RevenueByPaymentMethod map[string]int `json:"revenueByPaymentMethod"`
}

type AddExpenseRequest struct {
	Amount   int    `json:"amount" validate:"required,gt=0"`
	Date     string `json:"date" validate:"required,date"`
	Category string `json:"category" validate:"required"`
}

type SyncRequest struct {
	From string `json:"from" validate:"required,date"`
	To   string `json:"to" validate:"required,date"`
}
