package activity

import "context"

type Repository interface {
	Feed(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error)
}
