package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const hospitalCols = `hospital_id, name, address, location_lat, location_long, contact_number,
	email, website, status, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.HospitalID, &h.Name, &h.Address, &h.LocationLat, &h.LocationLong,
		&h.ContactNumber, &h.Email, &h.Website, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, errHospitalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospitals (name, address, location_lat, location_long, contact_number, email, website, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING hospital_id, created_at, updated_at`,
		h.Name, h.Address, h.LocationLat, h.LocationLong, h.ContactNumber, h.Email, h.Website, h.Status,
	).Scan(&h.HospitalID, &h.CreatedAt, &h.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE hospital_id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE hospitals SET status = $2, updated_at = NOW() WHERE hospital_id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errHospitalNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, q Query, limit, offset int) ([]*Hospital, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if q.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, q.Status)
		idx++
	}
	if q.Name != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, db.ContainsPattern(q.Name))
		idx++
	}
	if q.Location != "" {
		where += fmt.Sprintf(` AND address ILIKE $%d`, idx)
		args = append(args, db.ContainsPattern(q.Location))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + hospitalCols + ` FROM hospitals` + where +
		fmt.Sprintf(` ORDER BY hospital_id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Hospital
	for rows.Next() {
		h, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}
