package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no payment matches the lookup.
var ErrNotFound = errors.New("payment not found")

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	UpdateStatus(ctx context.Context, id int64, status string, notes *string) error
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error)

	InsertItems(ctx context.Context, paymentID int64, items []*PaymentItem) error
	GetItems(ctx context.Context, paymentID int64) ([]*PaymentItem, error)
	DeleteItems(ctx context.Context, paymentID int64) error
}
