package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// feedPerSource is how many rows each activity source contributes.
const feedPerSource = 5

// ApprovalRate is approved as a percentage of total, rounded to one decimal.
// An empty population yields 0.
func ApprovalRate(approved, total int) float64 {
	if total < 1 {
		total = 1
	}
	return math.Round(float64(approved)*1000/float64(total)) / 10
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats is computed fresh on every call.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	w := NewWindow(s.now())
	c, err := s.repo.Counts(ctx, w)
	if err != nil {
		return nil, err
	}
	return &Stats{
		// Sign-ins are not tracked, so active_today stays 0.
		Users: UserStats{Total: c.Users, NewThisMonth: c.NewUsers},
		Doctors: ModerationStats{
			Total:        c.Doctors,
			Pending:      c.PendingDoctors,
			Approved:     c.ApprovedDoctors,
			ApprovalRate: ApprovalRate(c.ApprovedDoctors, c.Doctors),
		},
		Hospitals: ModerationStats{
			Total:        c.Hospitals,
			Pending:      c.PendingHospitals,
			Approved:     c.ApprovedHospitals,
			ApprovalRate: ApprovalRate(c.ApprovedHospitals, c.Hospitals),
		},
		Appointments: AppointmentStats{
			Total:    c.Appointments,
			Today:    c.TodayAppointments,
			Upcoming: c.UpcomingAppointments,
		},
		Prescriptions: PrescriptionStats{Total: c.Prescriptions, Recent: c.RecentPrescriptions},
		System:        SystemStatus{Status: "healthy", LastUpdated: w.Now},
	}, nil
}

// RecentActivity merges the newest registrations, pending doctor
// applications and appointments, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		return []Activity{}, nil
	}
	users, err := s.repo.RecentUsers(ctx, feedPerSource)
	if err != nil {
		return nil, err
	}
	doctors, err := s.repo.RecentPendingDoctors(ctx, feedPerSource)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.RecentAppointments(ctx, feedPerSource)
	if err != nil {
		return nil, err
	}

	feed := make([]Activity, 0, len(users)+len(doctors)+len(appts))
	for _, u := range users {
		feed = append(feed, Activity{
			Type:      ActivityUserRegistration,
			Message:   "New user registered: " + u.Name,
			Timestamp: u.CreatedAt,
			EntityID:  u.ID,
		})
	}
	for _, d := range doctors {
		feed = append(feed, Activity{
			Type:      ActivityDoctorApplication,
			Message:   "New doctor application: Dr. " + d.Name,
			Timestamp: d.CreatedAt,
			EntityID:  d.ID,
		})
	}
	for _, a := range appts {
		name := a.Name
		if name == "" {
			name = "Unknown"
		}
		feed = append(feed, Activity{
			Type:      ActivityAppointment,
			Message:   "New appointment scheduled by " + name,
			Timestamp: a.CreatedAt,
			EntityID:  a.ID,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Timestamp.After(feed[j].Timestamp) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func (s *Service) AppointmentsOverview(ctx context.Context) (*Overview, error) {
	w := NewWindow(s.now())
	byStatus, err := s.repo.AppointmentsBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.AppointmentsBy(ctx, "type")
	if err != nil {
		return nil, err
	}
	today, err := s.repo.AppointmentsBetween(ctx, w.DayStart, w.DayEnd)
	if err != nil {
		return nil, err
	}

	items := make([]TodayItem, 0, len(today))
	for _, a := range today {
		items = append(items, TodayItem{
			ID:     a.ID,
			Time:   a.Time.UTC().Format("15:04"),
			Type:   a.Type,
			Status: a.Status,
		})
	}
	return &Overview{
		ByStatus: StatusBreakdown{
			Confirmed: byStatus["CONFIRMED"],
			Requested: byStatus["REQUESTED"],
			Completed: byStatus["COMPLETED"],
			Cancelled: byStatus["CANCELLED"],
		},
		ByType: TypeBreakdown{
			InPerson: byType["IN_PERSON"],
			Video:    byType["VIDEO"],
		},
		Today: TodaySummary{Count: len(items), Appointments: items},
	}, nil
}

// Export builds an XLSX workbook with the current stats and the
// appointments scheduled in [from, to).
func (s *Service) Export(ctx context.Context, from, to time.Time) ([]byte, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("export range is empty")
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.AppointmentsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out, err := buildWorkbook(stats, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("appointments", len(rows)).Time("from", from).Time("to", to).Msg("dashboard exported")
	return out, nil
}
