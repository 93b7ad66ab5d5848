package checkin

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
)

// Scan outcomes, in the order the validator checks them.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalidCode = "invalid_code"
	OutcomeCancelled   = "appointment_cancelled"
	OutcomeCompleted   = "already_completed"
	OutcomeWrongDate   = "wrong_date"
	OutcomeDuplicate   = "duplicate_check_in"
)

// Scan event results recorded in the audit log.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
)

// ScanEvent maps to the qr_scan_events table. One row is appended per scan
// attempt, failures included.
type ScanEvent struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID *int64    `db:"appointment_id" json:"appointment_id,omitempty"`
	Code          string    `db:"code" json:"code"`
	ScannedBy     string    `db:"scanned_by" json:"scanned_by"`
	Result        string    `db:"result" json:"result"`
	Note          *string   `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ScanResult is the terminal outcome of a scan attempt. Every outcome,
// success or not, is an ordinary value rather than an error.
type ScanResult struct {
	Outcome     string
	Message     string
	Appointment *appointment.Appointment
}

// OK reports whether the scan resulted in a check-in.
func (r *ScanResult) OK() bool { return r.Outcome == OutcomeSuccess }
