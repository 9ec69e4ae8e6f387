package telephony

import "context"

type Repository interface {
	Create(ctx context.Context, c *CallBooking) error
	GetByID(ctx context.Context, id int64) (*CallBooking, error)
	MarkBooked(ctx context.Context, id, appointmentID int64) error
	List(ctx context.Context, limit, offset int) ([]*CallBooking, int, error)
}
