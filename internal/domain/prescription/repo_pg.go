package prescription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const prescriptionCols = `prescription_id, appointment_id, doctor_id, user_id, diagnosis, medications,
	instructions, follow_up_date, created_at`

func (r *repoPG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var meds string
	err := row.Scan(&p.PrescriptionID, &p.AppointmentID, &p.DoctorID, &p.UserID, &p.Diagnosis,
		&meds, &p.Instructions, &p.FollowUpDate, &p.CreatedAt)
	if db.IsNoRows(err) {
		return nil, errPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meds), &p.Medications); err != nil {
		return nil, fmt.Errorf("decode medications: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (appointment_id, doctor_id, user_id, diagnosis, medications, instructions, follow_up_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING prescription_id, created_at`,
		p.AppointmentID, p.DoctorID, p.UserID, p.Diagnosis, string(meds), p.Instructions, p.FollowUpDate,
	).Scan(&p.PrescriptionID, &p.CreatedAt)
	if db.IsUniqueViolation(err, "prescriptions_appointment_key") {
		return apperr.Conflict("Prescription already exists for this appointment")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE prescription_id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, q Query, limit, offset int) ([]*Prescription, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if q.UserID != 0 {
		where += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, q.UserID)
		idx++
	}
	if q.DoctorID != 0 {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, q.DoctorID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + prescriptionCols + ` FROM prescriptions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, prescription_id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
