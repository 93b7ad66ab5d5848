package checkin

import "context"

type EventRepository interface {
	Create(ctx context.Context, e *ScanEvent) error
	List(ctx context.Context, limit, offset int) ([]*ScanEvent, int, error)
}
