package telephony

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const callCols = `call_id, caller_number, user_id, symptoms, suggested_specialization, urgency,
	booked_appointment_id, call_timestamp, call_duration, status`

func (r *repoPG) scan(row pgx.Row) (*CallBooking, error) {
	var c CallBooking
	err := row.Scan(&c.CallID, &c.CallerNumber, &c.UserID, &c.Symptoms, &c.SuggestedSpecialization,
		&c.Urgency, &c.BookedAppointmentID, &c.CallTimestamp, &c.CallDuration, &c.Status)
	if db.IsNoRows(err) {
		return nil, errCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *CallBooking) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO call_bookings (caller_number, user_id, symptoms, suggested_specialization, urgency, call_duration, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING call_id, call_timestamp`,
		c.CallerNumber, c.UserID, c.Symptoms, c.SuggestedSpecialization, c.Urgency, c.CallDuration, c.Status,
	).Scan(&c.CallID, &c.CallTimestamp)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*CallBooking, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+callCols+` FROM call_bookings WHERE call_id = $1`, id))
}

func (r *repoPG) MarkBooked(ctx context.Context, id, appointmentID int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE call_bookings SET booked_appointment_id = $2, status = $3 WHERE call_id = $1`,
		id, appointmentID, CallBooked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errCallNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*CallBooking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM call_bookings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+callCols+` FROM call_bookings
		ORDER BY call_timestamp DESC, call_id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CallBooking
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
