package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

// The feed is a read-only union over the source tables, merged by creation
// time. Doctor and patient names feed the event description; appointments
// reference their id.
const feedSource = `
	SELECT 'appointment_created' AS type, id AS ref_id,
		'Appointment #' || id || ' scheduled' AS description, created_at
	FROM appointments
	UNION ALL
	SELECT 'doctor_registered', id, 'Doctor ' || name || ' registered', created_at
	FROM doctors
	UNION ALL
	SELECT 'patient_registered', id, 'Patient ' || name || ' registered', created_at
	FROM patients`

func (r *repoPG) Feed(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = fmt.Sprintf("$%d", idx)
			args = append(args, t)
			idx++
		}
		where += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}
	if !f.Since.IsZero() {
		where += fmt.Sprintf(` AND created_at >= $%d`, idx)
		args = append(args, f.Since)
		idx++
	}
	if !f.Until.IsZero() {
		where += fmt.Sprintf(` AND created_at <= $%d`, idx)
		args = append(args, f.Until)
		idx++
	}

	countQuery := `SELECT COUNT(*) FROM (` + feedSource + `) events` + where
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT type, ref_id, description, created_at FROM (` + feedSource + `) events` +
		where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Type, &e.RefID, &e.Description, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &e)
	}
	return events, total, rows.Err()
}
