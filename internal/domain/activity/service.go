package activity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidType is returned when a feed filter names an unknown activity
// type.
var ErrInvalidType = errors.New("invalid activity type")

var validTypes = map[string]bool{
	TypeAppointmentCreated: true,
	TypeDoctorRegistered:   true,
	TypePatientRegistered:  true,
}

type Service struct {
	repo Repository

	now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Feed returns the merged activity feed, newest first, with relative-age
// labels attached. Read-only.
func (s *Service) Feed(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	for _, t := range f.Types {
		if !validTypes[t] {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidType, t)
		}
	}

	events, total, err := s.repo.Feed(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	for _, e := range events {
		e.Age = RelativeAge(now, e.CreatedAt)
	}
	return events, total, nil
}
