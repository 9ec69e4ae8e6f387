package appointment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q ListQuery, limit, offset int) ([]*Appointment, int, error)
	// Due returns CONFIRMED appointments whose time falls in [from, to].
	Due(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}
