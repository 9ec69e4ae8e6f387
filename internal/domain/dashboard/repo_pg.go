package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

// measure is one COUNT query feeding a field of Counts.
type measure struct {
	ID   string
	SQL  string
	Args func(w Window) []interface{}
	Dest func(c *Counts) *int
}

func noArgs(Window) []interface{} { return nil }

var measures = []measure{
	{"users", `SELECT COUNT(*) FROM users`, noArgs,
		func(c *Counts) *int { return &c.Users }},
	{"users-new", `SELECT COUNT(*) FROM users WHERE created_at >= $1`,
		func(w Window) []interface{} { return []interface{}{w.MonthAgo} },
		func(c *Counts) *int { return &c.NewUsers }},
	{"doctors", `SELECT COUNT(*) FROM doctors`, noArgs,
		func(c *Counts) *int { return &c.Doctors }},
	{"doctors-pending", `SELECT COUNT(*) FROM doctors WHERE status = 'PENDING'`, noArgs,
		func(c *Counts) *int { return &c.PendingDoctors }},
	{"doctors-approved", `SELECT COUNT(*) FROM doctors WHERE status = 'APPROVED'`, noArgs,
		func(c *Counts) *int { return &c.ApprovedDoctors }},
	{"hospitals", `SELECT COUNT(*) FROM hospitals`, noArgs,
		func(c *Counts) *int { return &c.Hospitals }},
	{"hospitals-pending", `SELECT COUNT(*) FROM hospitals WHERE status = 'PENDING'`, noArgs,
		func(c *Counts) *int { return &c.PendingHospitals }},
	{"hospitals-approved", `SELECT COUNT(*) FROM hospitals WHERE status = 'APPROVED'`, noArgs,
		func(c *Counts) *int { return &c.ApprovedHospitals }},
	{"appointments", `SELECT COUNT(*) FROM appointments`, noArgs,
		func(c *Counts) *int { return &c.Appointments }},
	{"appointments-today", `SELECT COUNT(*) FROM appointments WHERE appointment_time >= $1 AND appointment_time < $2`,
		func(w Window) []interface{} { return []interface{}{w.DayStart, w.DayEnd} },
		func(c *Counts) *int { return &c.TodayAppointments }},
	{"appointments-upcoming", `SELECT COUNT(*) FROM appointments WHERE appointment_time >= $1 AND status = 'CONFIRMED'`,
		func(w Window) []interface{} { return []interface{}{w.Now} },
		func(c *Counts) *int { return &c.UpcomingAppointments }},
	{"prescriptions", `SELECT COUNT(*) FROM prescriptions`, noArgs,
		func(c *Counts) *int { return &c.Prescriptions }},
	{"prescriptions-recent", `SELECT COUNT(*) FROM prescriptions WHERE created_at >= $1`,
		func(w Window) []interface{} { return []interface{}{w.WeekAgo} },
		func(c *Counts) *int { return &c.RecentPrescriptions }},
}

func (r *repoPG) Counts(ctx context.Context, w Window) (Counts, error) {
	var c Counts
	for _, m := range measures {
		if err := r.conn(ctx).QueryRow(ctx, m.SQL, m.Args(w)...).Scan(m.Dest(&c)); err != nil {
			return Counts{}, fmt.Errorf("measure %s: %w", m.ID, err)
		}
	}
	return c, nil
}

func (r *repoPG) entries(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.Name, &e.CreatedAt)
		return e, err
	})
}

func (r *repoPG) RecentUsers(ctx context.Context, n int) ([]Entry, error) {
	return r.entries(ctx, `SELECT user_id, name, created_at FROM users
		ORDER BY created_at DESC LIMIT $1`, n)
}

func (r *repoPG) RecentPendingDoctors(ctx context.Context, n int) ([]Entry, error) {
	return r.entries(ctx, `SELECT doctor_id, name, created_at FROM doctors
		WHERE status = 'PENDING' ORDER BY created_at DESC LIMIT $1`, n)
}

func (r *repoPG) RecentAppointments(ctx context.Context, n int) ([]Entry, error) {
	return r.entries(ctx, `SELECT a.appointment_id, COALESCE(u.name, ''), a.created_at
		FROM appointments a LEFT JOIN users u ON u.user_id = a.user_id
		ORDER BY a.created_at DESC LIMIT $1`, n)
}

var groupColumns = map[string]string{
	"status": "status",
	"type":   "appointment_type",
}

func (r *repoPG) AppointmentsBy(ctx context.Context, field string) (map[string]int, error) {
	col, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown appointment grouping %q", field)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+col+`, COUNT(*) FROM appointments GROUP BY `+col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *repoPG) AppointmentsBetween(ctx context.Context, from, to time.Time) ([]AppointmentRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.appointment_id, a.appointment_time, a.appointment_type, a.status,
			COALESCE(u.name, ''), COALESCE(d.name, '')
		FROM appointments a
		LEFT JOIN users u ON u.user_id = a.user_id
		LEFT JOIN doctors d ON d.doctor_id = a.doctor_id
		WHERE a.appointment_time >= $1 AND a.appointment_time < $2
		ORDER BY a.appointment_time`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppointmentRow, error) {
		var a AppointmentRow
		err := row.Scan(&a.ID, &a.Time, &a.Type, &a.Status, &a.PatientName, &a.DoctorName)
		return a, err
	})
}
