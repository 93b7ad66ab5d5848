package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
)

// -- Fakes --

type fakeApptRepo struct {
	appts map[int64]*appointment.Appointment
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{appts: make(map[int64]*appointment.Appointment)}
}

func (f *fakeApptRepo) Create(_ context.Context, a *appointment.Appointment) error {
	f.appts[a.ID] = a
	return nil
}

func (f *fakeApptRepo) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApptRepo) GetByQRCode(_ context.Context, code string) (*appointment.Appointment, error) {
	for _, a := range f.appts {
		if a.QRCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appointment.ErrNotFound
}

func (f *fakeApptRepo) Update(_ context.Context, a *appointment.Appointment) error {
	f.appts[a.ID] = a
	return nil
}

func (f *fakeApptRepo) UpdatePaymentStatus(_ context.Context, id int64, status string) error {
	a, ok := f.appts[id]
	if !ok {
		return appointment.ErrNotFound
	}
	a.PaymentStatus = status
	return nil
}

func (f *fakeApptRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*appointment.Appointment, int, error) {
	return nil, 0, nil
}

func (f *fakeApptRepo) CheckIn(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	a, ok := f.appts[id]
	if !ok {
		return false, appointment.ErrNotFound
	}
	if a.CheckedInAt != nil {
		return false, nil
	}
	a.CheckedInAt = &at
	a.CheckedInBy = &actor
	a.Status = appointment.StatusConfirmed
	return true, nil
}

type fakeEventRepo struct {
	events []*ScanEvent
}

func (f *fakeEventRepo) Create(_ context.Context, e *ScanEvent) error {
	e.CreatedAt = time.Now()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) List(_ context.Context, limit, offset int) ([]*ScanEvent, int, error) {
	return f.events, len(f.events), nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Setup --

var testNow = time.Date(2026, 9, 1, 9, 30, 0, 0, time.Local)

func newTestService(appts *fakeApptRepo, events *fakeEventRepo) *Service {
	svc := NewService(appts, events, passthroughTx)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedAppointment(repo *fakeApptRepo, id int64, status, date string) *appointment.Appointment {
	a := &appointment.Appointment{
		ID:        id,
		PatientID: 1,
		DoctorID:  2,
		Date:      date,
		StartTime: "10:00",
		Status:    status,
		QRCode:    "APT-00000000000" + string(rune('0'+id)),
	}
	repo.appts[id] = a
	return a
}

// -- Tests --

func TestScan_Success(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusPending, "2026-09-01")

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected success, got %s: %s", res.Outcome, res.Message)
	}

	stored := appts.appts[1]
	if stored.CheckedInAt == nil || !stored.CheckedInAt.Equal(testNow) {
		t.Errorf("expected checked_in_at %v, got %v", testNow, stored.CheckedInAt)
	}
	if stored.CheckedInBy == nil || *stored.CheckedInBy != "front desk" {
		t.Errorf("expected checked_in_by front desk, got %v", stored.CheckedInBy)
	}
	if stored.Status != appointment.StatusConfirmed {
		t.Errorf("expected status confirmed, got %s", stored.Status)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 scan event, got %d", len(events.events))
	}
	e := events.events[0]
	if e.Result != ResultSuccess || e.AppointmentID == nil || *e.AppointmentID != 1 {
		t.Errorf("unexpected scan event: %+v", e)
	}
}

func TestScan_InvalidCode(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)

	res, err := svc.Scan(context.Background(), "APT-DOESNOTEXIST", "front desk")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Outcome != OutcomeInvalidCode {
		t.Fatalf("expected invalid_code, got %s", res.Outcome)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected audit row for failed scan, got %d", len(events.events))
	}
	e := events.events[0]
	if e.Result != ResultInvalid {
		t.Errorf("expected invalid result, got %s", e.Result)
	}
	if e.AppointmentID != nil {
		t.Errorf("expected nil appointment link for unknown code, got %v", *e.AppointmentID)
	}
	if e.Code != "APT-DOESNOTEXIST" {
		t.Errorf("expected raw code recorded, got %s", e.Code)
	}
}

func TestScan_Cancelled(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusCancelled, "2026-09-01")

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected appointment_cancelled, got %s", res.Outcome)
	}
	if res.Appointment == nil || res.Appointment.ID != 1 {
		t.Error("expected cancelled appointment attached to result")
	}
	if appts.appts[1].CheckedInAt != nil {
		t.Error("cancelled appointment must not be checked in")
	}
	if len(events.events) != 1 || events.events[0].Result != ResultInvalid {
		t.Error("expected one invalid scan event")
	}
}

func TestScan_Completed(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusCompleted, "2026-09-01")

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCompleted {
		t.Fatalf("expected already_completed, got %s", res.Outcome)
	}
}

func TestScan_WrongDate(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusConfirmed, "2026-09-03")

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeWrongDate {
		t.Fatalf("expected wrong_date, got %s", res.Outcome)
	}
	if res.Message != "This appointment is scheduled for 2026-09-03" {
		t.Errorf("expected scheduled-date message, got %q", res.Message)
	}
	if appts.appts[1].CheckedInAt != nil {
		t.Error("wrong-date scan must not check in")
	}
}

// A cancelled appointment on the wrong date reports cancellation, not the
// date: status checks precede the date check.
func TestScan_CancelledBeforeWrongDate(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusCancelled, "2026-09-03")

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected appointment_cancelled to take precedence, got %s", res.Outcome)
	}
}

func TestScan_Duplicate(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	svc := newTestService(appts, events)
	a := seedAppointment(appts, 1, appointment.StatusConfirmed, "2026-09-01")
	earlier := testNow.Add(-30 * time.Minute)
	actor := "front desk"
	a.CheckedInAt = &earlier
	a.CheckedInBy = &actor

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate_check_in, got %s", res.Outcome)
	}
	if appts.appts[1].CheckedInAt == nil || !appts.appts[1].CheckedInAt.Equal(earlier) {
		t.Error("original check-in time must survive a duplicate scan")
	}
}

// When the conditional update loses the race, the scan resolves to a
// duplicate rather than a second check-in.
func TestScan_ConcurrentLoserIsDuplicate(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	a := seedAppointment(appts, 1, appointment.StatusConfirmed, "2026-09-01")

	svc := NewService(appts, events, func(ctx context.Context, fn func(ctx context.Context) error) error {
		// Another scan wins just before this transaction's update runs.
		winner := testNow.Add(-time.Second)
		other := "other desk"
		appts.appts[1].CheckedInAt = &winner
		appts.appts[1].CheckedInBy = &other
		return fn(ctx)
	})
	svc.now = func() time.Time { return testNow }

	res, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate_check_in for race loser, got %s", res.Outcome)
	}
	if got := appts.appts[1].CheckedInBy; got == nil || *got != "other desk" {
		t.Errorf("winner's check-in must stand, got %v", got)
	}
	// The loser still leaves an audit row.
	if len(events.events) != 1 || events.events[0].Result != ResultInvalid {
		t.Errorf("expected one invalid event for the losing scan, got %+v", events.events)
	}
}

// A failed transaction must not leave a success event behind.
func TestScan_FailedTxWritesNothing(t *testing.T) {
	appts := newFakeApptRepo()
	events := &fakeEventRepo{}
	a := seedAppointment(appts, 1, appointment.StatusPending, "2026-09-01")

	svc := NewService(appts, events, func(ctx context.Context, fn func(ctx context.Context) error) error {
		return context.DeadlineExceeded
	})
	svc.now = func() time.Time { return testNow }

	_, err := svc.Scan(context.Background(), a.QRCode, "front desk")
	if err == nil {
		t.Fatal("expected transaction error to surface")
	}
	if len(events.events) != 0 {
		t.Errorf("expected no events after failed transaction, got %d", len(events.events))
	}
}
