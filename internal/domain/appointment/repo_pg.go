package appointment

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

const appointmentCols = `a.appointment_id, a.user_id, u.name, a.doctor_id, a.hospital_id, a.appointment_type,
	a.video_link, a.appointment_time, a.duration, a.symptoms, a.urgency, a.status, a.notes,
	a.created_at, a.updated_at`

const appointmentFrom = ` FROM appointments a JOIN users u ON u.user_id = a.user_id`

func (r *repoPG) scan(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var patient Patient
	err := row.Scan(&a.AppointmentID, &a.UserID, &patient.FullName, &a.DoctorID, &a.HospitalID,
		&a.AppointmentType, &a.VideoLink, &a.AppointmentTime, &a.Duration, &a.Symptoms, &a.Urgency,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, errAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	patient.UserID = a.UserID
	a.User = &patient
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (user_id, doctor_id, hospital_id, appointment_type, video_link,
			appointment_time, duration, symptoms, urgency, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING appointment_id, created_at, updated_at`,
		a.UserID, a.DoctorID, a.HospitalID, a.AppointmentType, a.VideoLink,
		a.AppointmentTime, a.Duration, a.Symptoms, a.Urgency, a.Status, a.Notes,
	).Scan(&a.AppointmentID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+appointmentFrom+` WHERE a.appointment_id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET appointment_time=$2, duration=$3, notes=$4, video_link=$5, status=$6,
			updated_at=NOW()
		WHERE appointment_id = $1
		RETURNING updated_at`,
		a.AppointmentID, a.AppointmentTime, a.Duration, a.Notes, a.VideoLink, a.Status,
	).Scan(&a.UpdatedAt)
	if db.IsNoRows(err) {
		return errAppointmentNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE appointment_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errAppointmentNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, q ListQuery, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if q.UserID != 0 {
		where += fmt.Sprintf(` AND a.user_id = $%d`, idx)
		args = append(args, q.UserID)
		idx++
	}
	switch {
	case q.DoctorID != 0 && q.HospitalID != 0:
		where += fmt.Sprintf(` AND (a.doctor_id = $%d OR a.hospital_id = $%d)`, idx, idx+1)
		args = append(args, q.DoctorID, q.HospitalID)
		idx += 2
	case q.DoctorID != 0:
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, q.DoctorID)
		idx++
	case q.HospitalID != 0:
		where += fmt.Sprintf(` AND a.hospital_id = $%d`, idx)
		args = append(args, q.HospitalID)
		idx++
	}
	if q.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, q.Status)
		idx++
	}
	if q.From != nil {
		where += fmt.Sprintf(` AND a.appointment_time >= $%d`, idx)
		args = append(args, *q.From)
		idx++
	}
	if q.To != nil {
		where += fmt.Sprintf(` AND a.appointment_time <= $%d`, idx)
		args = append(args, *q.To)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + appointmentCols + appointmentFrom + where +
		fmt.Sprintf(` ORDER BY a.appointment_time DESC, a.appointment_id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Appointment, int, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Due(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+appointmentCols+appointmentFrom+`
		WHERE a.status = $1 AND a.appointment_time >= $2 AND a.appointment_time <= $3
		ORDER BY a.appointment_time`, StatusConfirmed, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, _, err := r.collect(rows, 0)
	return items, err
}
