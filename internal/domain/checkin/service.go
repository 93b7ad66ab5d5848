package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

// errLostRace aborts the check-in transaction when the conditional update
// finds the appointment already checked in.
var errLostRace = errors.New("check-in race lost")

type Service struct {
	appts  appointment.Repository
	events EventRepository
	tx     db.TxRunner

	now func() time.Time
}

func NewService(appts appointment.Repository, events EventRepository, tx db.TxRunner) *Service {
	return &Service{appts: appts, events: events, tx: tx, now: time.Now}
}

// Scan resolves a QR code and applies the check-in state machine. The checks
// run strictly in order: unknown code, cancelled, completed, wrong date,
// duplicate. Every attempt, valid or not, appends a scan event; the success
// path writes the check-in and its event in one transaction.
func (s *Service) Scan(ctx context.Context, code, actor string) (*ScanResult, error) {
	a, err := s.appts.GetByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			res := &ScanResult{Outcome: OutcomeInvalidCode, Message: "Invalid QR code"}
			return s.logged(ctx, res, nil, code, actor)
		}
		return nil, fmt.Errorf("resolve qr code: %w", err)
	}

	switch {
	case a.Status == appointment.StatusCancelled:
		res := &ScanResult{
			Outcome:     OutcomeCancelled,
			Message:     "This appointment has been cancelled",
			Appointment: a,
		}
		return s.logged(ctx, res, a, code, actor)

	case a.Status == appointment.StatusCompleted:
		res := &ScanResult{
			Outcome:     OutcomeCompleted,
			Message:     "This appointment has already been completed",
			Appointment: a,
		}
		return s.logged(ctx, res, a, code, actor)

	case !a.IsOn(s.now()):
		res := &ScanResult{
			Outcome:     OutcomeWrongDate,
			Message:     fmt.Sprintf("This appointment is scheduled for %s", a.Date),
			Appointment: a,
		}
		return s.logged(ctx, res, a, code, actor)

	case a.CheckedInAt != nil:
		res := &ScanResult{
			Outcome:     OutcomeDuplicate,
			Message:     fmt.Sprintf("Already checked in at %s", a.CheckedInAt.Format("15:04")),
			Appointment: a,
		}
		return s.logged(ctx, res, a, code, actor)
	}

	at := s.now()
	err = s.tx(ctx, func(txCtx context.Context) error {
		ok, err := s.appts.CheckIn(txCtx, a.ID, actor, at)
		if err != nil {
			return fmt.Errorf("check in: %w", err)
		}
		if !ok {
			return errLostRace
		}
		event := &ScanEvent{
			AppointmentID: &a.ID,
			Code:          code,
			ScannedBy:     actor,
			Result:        ResultSuccess,
		}
		if err := s.events.Create(txCtx, event); err != nil {
			return fmt.Errorf("record scan event: %w", err)
		}
		return nil
	})
	if errors.Is(err, errLostRace) {
		// A concurrent scan won; this one is a duplicate.
		winner, gerr := s.appts.GetByID(ctx, a.ID)
		if gerr != nil {
			winner = a
		}
		msg := "Already checked in"
		if winner.CheckedInAt != nil {
			msg = fmt.Sprintf("Already checked in at %s", winner.CheckedInAt.Format("15:04"))
		}
		res := &ScanResult{Outcome: OutcomeDuplicate, Message: msg, Appointment: winner}
		return s.logged(ctx, res, winner, code, actor)
	}
	if err != nil {
		return nil, err
	}

	refreshed, err := s.appts.GetByID(ctx, a.ID)
	if err != nil {
		refreshed = a
	}
	return &ScanResult{
		Outcome:     OutcomeSuccess,
		Message:     "Check-in successful",
		Appointment: refreshed,
	}, nil
}

// logged appends the invalid-scan audit row for a terminal failure outcome
// and passes the result through.
func (s *Service) logged(ctx context.Context, res *ScanResult, a *appointment.Appointment, code, actor string) (*ScanResult, error) {
	event := &ScanEvent{
		Code:      code,
		ScannedBy: actor,
		Result:    ResultInvalid,
		Note:      &res.Outcome,
	}
	if a != nil {
		event.AppointmentID = &a.ID
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("record scan event: %w", err)
	}
	return res, nil
}

func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]*ScanEvent, int, error) {
	return s.events.List(ctx, limit, offset)
}
