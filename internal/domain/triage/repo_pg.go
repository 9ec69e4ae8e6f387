package triage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const checkCols = `check_id, user_id, symptoms, suggested_specialization, urgency, recommended_doctors, created_at`

func (r *repoPG) scan(row pgx.Row) (*SymptomCheck, error) {
	var sc SymptomCheck
	var doctors string
	if err := row.Scan(&sc.CheckID, &sc.UserID, &sc.Symptoms, &sc.SuggestedSpecialization,
		&sc.Urgency, &doctors, &sc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doctors), &sc.RecommendedDoctors); err != nil {
		return nil, fmt.Errorf("decode recommended doctors: %w", err)
	}
	return &sc, nil
}

func (r *repoPG) Create(ctx context.Context, sc *SymptomCheck) error {
	if sc.RecommendedDoctors == nil {
		sc.RecommendedDoctors = []int64{}
	}
	doctors, err := json.Marshal(sc.RecommendedDoctors)
	if err != nil {
		return err
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO symptom_checks (user_id, symptoms, suggested_specialization, urgency, recommended_doctors)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING check_id, created_at`,
		sc.UserID, sc.Symptoms, sc.SuggestedSpecialization, sc.Urgency, string(doctors),
	).Scan(&sc.CheckID, &sc.CreatedAt)
}

func (r *repoPG) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*SymptomCheck, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM symptom_checks WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+checkCols+` FROM symptom_checks
		WHERE user_id = $1 ORDER BY created_at DESC, check_id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*SymptomCheck
	for rows.Next() {
		sc, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, sc)
	}
	return items, total, rows.Err()
}
