package appointment

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no appointment matches the lookup.
var ErrNotFound = errors.New("appointment not found")

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	GetByQRCode(ctx context.Context, code string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdatePaymentStatus(ctx context.Context, id int64, status string) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	// CheckIn performs the conditional check-in write. It returns false when
	// the appointment was already checked in, which makes concurrent scans of
	// the same code resolve to exactly one winner.
	CheckIn(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
}
