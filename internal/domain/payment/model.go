package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	MethodCash      = "cash"
	MethodCard      = "card"
	MethodTransfer  = "transfer"
	MethodInsurance = "insurance"
)

// Payment statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Reconciliation decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ValidationError marks input the reconciliation engine refused. Handlers
// render it as a 400; anything else coming out of the service is a server
// fault.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Payment maps to the payments table.
type Payment struct {
	ID            int64           `db:"id" json:"id"`
	PatientID     int64           `db:"patient_id" json:"patient_id"`
	AppointmentID *int64          `db:"appointment_id" json:"appointment_id,omitempty"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	Method        string          `db:"method" json:"method"`
	Status        string          `db:"payment_status" json:"payment_status"`
	ReceiptNo     string          `db:"receipt_no" json:"receipt_no"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentItem maps to the payment_items table. Position preserves the entry
// order of the line items.
type PaymentItem struct {
	ID          int64           `db:"id" json:"id"`
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Position    int             `db:"position" json:"position"`
}
