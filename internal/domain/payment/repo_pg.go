package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

// Amounts are NUMERIC columns scanned through text to keep exact decimals.
const paymentCols = `id, patient_id, appointment_id, total_amount::text, method, payment_status,
	receipt_no, transaction_id, notes, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var total string
	err := row.Scan(&p.ID, &p.PatientID, &p.AppointmentID, &total, &p.Method, &p.Status,
		&p.ReceiptNo, &p.TransactionID, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Payment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (patient_id, appointment_id, total_amount, method, payment_status,
			receipt_no, transaction_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at`,
		p.PatientID, p.AppointmentID, p.TotalAmount.StringFixed(2), p.Method, p.Status,
		p.ReceiptNo, p.TransactionID, p.Notes).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, status string, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payments SET payment_status=$2, notes=COALESCE($3, notes), updated_at=NOW()
		WHERE id = $1`, id, status, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE payments SET total_amount=$2, updated_at=NOW() WHERE id = $1`,
		id, total.StringFixed(2))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error) {
	query := `SELECT ` + paymentCols + ` FROM payments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM payments WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["patient_id"]; ok {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND payment_status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND payment_status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["method"]; ok {
		query += fmt.Sprintf(` AND method = $%d`, idx)
		countQuery += fmt.Sprintf(` AND method = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) InsertItems(ctx context.Context, paymentID int64, items []*PaymentItem) error {
	for i, item := range items {
		item.PaymentID = paymentID
		item.Position = i
		if err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO payment_items (payment_id, description, price, position)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			paymentID, item.Description, item.Price.StringFixed(2), i).
			Scan(&item.ID); err != nil {
			return fmt.Errorf("insert payment item %d: %w", i, err)
		}
	}
	return nil
}

func (r *repoPG) GetItems(ctx context.Context, paymentID int64) ([]*PaymentItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, payment_id, description, price::text, position
		FROM payment_items WHERE payment_id = $1 ORDER BY position`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PaymentItem
	for rows.Next() {
		var item PaymentItem
		var price string
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.Description, &price, &item.Position); err != nil {
			return nil, err
		}
		item.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *repoPG) DeleteItems(ctx context.Context, paymentID int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM payment_items WHERE payment_id = $1`, paymentID)
	return err
}
