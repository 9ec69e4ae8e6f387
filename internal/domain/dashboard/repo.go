package dashboard

import (
	"context"
	"time"
)

// Repository runs the read-only queries behind the admin dashboard.
type Repository interface {
	Counts(ctx context.Context, w Window) (Counts, error)

	RecentUsers(ctx context.Context, n int) ([]Entry, error)
	RecentPendingDoctors(ctx context.Context, n int) ([]Entry, error)
	RecentAppointments(ctx context.Context, n int) ([]Entry, error)

	// AppointmentsBy counts appointments grouped by "status" or "type".
	AppointmentsBy(ctx context.Context, field string) (map[string]int, error)
	AppointmentsBetween(ctx context.Context, from, to time.Time) ([]AppointmentRow, error)
}
