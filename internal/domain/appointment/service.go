package appointment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusConfirmed: true, StatusCompleted: true,
	StatusCancelled: true, StatusNoShow: true,
}

var validPaymentStatuses = map[string]bool{
	PaymentUnpaid: true, PaymentPending: true, PaymentPaid: true,
}

type Service struct {
	repo         Repository
	cancelWindow time.Duration

	now func() time.Time
}

func NewService(repo Repository, cancelWindow time.Duration) *Service {
	return &Service{repo: repo, cancelWindow: cancelWindow, now: time.Now}
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.PatientID == 0 {
		return invalidf("patient_id is required")
	}
	if a.DoctorID == 0 {
		return invalidf("doctor_id is required")
	}
	if a.Date == "" {
		return invalidf("date is required")
	}
	if a.StartTime == "" {
		return invalidf("start_time is required")
	}
	if _, err := time.Parse(dateLayout, a.Date); err != nil {
		return invalidf("invalid date: %s", a.Date)
	}
	if _, err := time.Parse(timeLayout, a.StartTime); err != nil {
		return invalidf("invalid start_time: %s", a.StartTime)
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !validStatuses[a.Status] {
		return invalidf("invalid appointment status: %s", a.Status)
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = PaymentUnpaid
	}
	if !validPaymentStatuses[a.PaymentStatus] {
		return invalidf("invalid payment status: %s", a.PaymentStatus)
	}

	code, err := generateQRCode()
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}
	a.QRCode = code

	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByQRCode(ctx context.Context, code string) (*Appointment, error) {
	return s.repo.GetByQRCode(ctx, code)
}

// Update replaces the editable fields of an existing appointment, including
// manual status overrides. Check-in fields and the QR code are not editable.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = existing.Status
	}
	if !validStatuses[a.Status] {
		return invalidf("invalid appointment status: %s", a.Status)
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = existing.PaymentStatus
	}
	if !validPaymentStatuses[a.PaymentStatus] {
		return invalidf("invalid payment status: %s", a.PaymentStatus)
	}
	if a.Date == "" {
		a.Date = existing.Date
	}
	if _, err := time.Parse(dateLayout, a.Date); err != nil {
		return invalidf("invalid date: %s", a.Date)
	}
	if a.StartTime == "" {
		a.StartTime = existing.StartTime
	}
	if _, err := time.Parse(timeLayout, a.StartTime); err != nil {
		return invalidf("invalid start_time: %s", a.StartTime)
	}
	if a.PatientID == 0 {
		a.PatientID = existing.PatientID
	}
	if a.DoctorID == 0 {
		a.DoctorID = existing.DoctorID
	}
	return s.repo.Update(ctx, a)
}

// RequestCancellation applies the cancellation rules: the appointment must be
// pending or confirmed, lie in the future, and the cancellation deadline
// (start minus the configured window) must not have passed. Rule violations
// come back as *PolicyError, not system errors.
func (s *Service) RequestCancellation(ctx context.Context, id int64, actor string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return nil, newPolicyError(CodeNotCancellable,
			"appointment cannot be cancelled in status %q", a.Status)
	}

	startAt, err := a.StartAt()
	if err != nil {
		return nil, fmt.Errorf("parse appointment time: %w", err)
	}

	now := s.now()
	deadline := startAt.Add(-s.cancelWindow)
	if !now.Before(startAt) || !now.Before(deadline) {
		return nil, newPolicyError(CodeWindowClosed,
			"appointments can only be cancelled at least %d hours in advance",
			int(s.cancelWindow.Hours()))
	}

	a.Status = StatusCancelled
	note := fmt.Sprintf("Cancelled by %s on %s", actor, now.Format("2006-01-02 15:04"))
	if a.Notes != nil && strings.TrimSpace(*a.Notes) != "" {
		note = *a.Notes + "\n" + note
	}
	a.Notes = &note

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// generateQRCode produces a check-in code of the form APT- followed by twelve
// uppercase hex characters.
func generateQRCode() (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "APT-" + strings.ToUpper(hex.EncodeToString(buf[:])), nil
}
