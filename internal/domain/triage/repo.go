package triage

import "context"

type Repository interface {
	Create(ctx context.Context, sc *SymptomCheck) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*SymptomCheck, int, error)
}
