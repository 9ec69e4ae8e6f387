package hospital

import "context"

type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id int64) (*Hospital, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Search(ctx context.Context, q Query, limit, offset int) ([]*Hospital, int, error)
}
