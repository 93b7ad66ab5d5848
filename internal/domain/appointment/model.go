package appointment

import (
	"fmt"
	"time"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Appointment payment statuses.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Appointment maps to the appointments table.
type Appointment struct {
	ID            int64      `db:"id" json:"id"`
	PatientID     int64      `db:"patient_id" json:"patient_id"`
	DoctorID      int64      `db:"doctor_id" json:"doctor_id"`
	Date          string     `db:"date" json:"date"`             // YYYY-MM-DD
	StartTime     string     `db:"start_time" json:"start_time"` // HH:MM
	Status        string     `db:"status" json:"status"`
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
	Reason        *string    `db:"reason" json:"reason,omitempty"`
	Symptoms      *string    `db:"symptoms" json:"symptoms,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	QRCode        string     `db:"qr_code" json:"qr_code"`
	CheckedInAt   *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedInBy   *string    `db:"checked_in_by" json:"checked_in_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StartAt combines the appointment date and start time into a single local
// timestamp for policy arithmetic.
func (a *Appointment) StartAt() (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, a.Date+" "+a.StartTime, time.Local)
}

// IsOn reports whether the appointment falls on the same calendar day as t.
func (a *Appointment) IsOn(t time.Time) bool {
	return a.Date == t.Format(dateLayout)
}

// Policy violation codes returned by the scheduling rules.
const (
	CodeNotCancellable = "not_cancellable"
	CodeWindowClosed   = "cancellation_window_closed"
)

// PolicyError is an expected scheduling-rule outcome, not a system failure.
// Handlers render it as a structured refusal rather than a 5xx.
type PolicyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *PolicyError) Error() string { return e.Message }

func newPolicyError(code, format string, args ...any) *PolicyError {
	return &PolicyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError marks input the store refused. Handlers render it as a 400;
// anything else coming out of the service is a server fault.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
