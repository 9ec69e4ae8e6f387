package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type fakeRepo struct {
	counts    Counts
	users     []Entry
	doctors   []Entry
	appts     []Entry
	byStatus  map[string]int
	byType    map[string]int
	rows      []AppointmentRow
	gotWindow Window
	gotFrom   time.Time
	gotTo     time.Time
}

func (f *fakeRepo) Counts(_ context.Context, w Window) (Counts, error) {
	f.gotWindow = w
	return f.counts, nil
}

func (f *fakeRepo) RecentUsers(_ context.Context, n int) ([]Entry, error)          { return f.users, nil }
func (f *fakeRepo) RecentPendingDoctors(_ context.Context, n int) ([]Entry, error) { return f.doctors, nil }
func (f *fakeRepo) RecentAppointments(_ context.Context, n int) ([]Entry, error)   { return f.appts, nil }

func (f *fakeRepo) AppointmentsBy(_ context.Context, field string) (map[string]int, error) {
	if field == "status" {
		return f.byStatus, nil
	}
	return f.byType, nil
}

func (f *fakeRepo) AppointmentsBetween(_ context.Context, from, to time.Time) ([]AppointmentRow, error) {
	f.gotFrom, f.gotTo = from, to
	return f.rows, nil
}

var now = time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, zerolog.Nop()).WithClock(func() time.Time { return now })
}

func TestApprovalRate(t *testing.T) {
	tests := []struct {
		approved, total int
		want            float64
	}{
		{0, 0, 0},
		{3, 3, 100},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
	}
	for _, tt := range tests {
		if got := ApprovalRate(tt.approved, tt.total); got != tt.want {
			t.Errorf("ApprovalRate(%d, %d) = %v, want %v", tt.approved, tt.total, got, tt.want)
		}
	}
}

func TestNewWindow(t *testing.T) {
	w := NewWindow(now)
	if !w.DayStart.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day start %s", w.DayStart)
	}
	if w.DayEnd.Sub(w.DayStart) != 24*time.Hour {
		t.Errorf("day window should span 24h")
	}
	if now.Sub(w.MonthAgo) != 30*24*time.Hour || now.Sub(w.WeekAgo) != 7*24*time.Hour {
		t.Errorf("unexpected lookback windows")
	}
}

func TestStats(t *testing.T) {
	repo := &fakeRepo{counts: Counts{
		Users: 10, NewUsers: 4,
		Doctors: 3, PendingDoctors: 1, ApprovedDoctors: 2,
		Appointments: 7, TodayAppointments: 2, UpcomingAppointments: 3,
		Prescriptions: 5, RecentPrescriptions: 1,
	}}
	stats, err := newTestService(repo).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Doctors.ApprovalRate != 66.7 {
		t.Errorf("expected 66.7, got %v", stats.Doctors.ApprovalRate)
	}
	if stats.Hospitals.ApprovalRate != 0 {
		t.Errorf("empty hospitals should have rate 0, got %v", stats.Hospitals.ApprovalRate)
	}
	if stats.Users.ActiveToday != 0 || stats.Users.NewThisMonth != 4 {
		t.Errorf("unexpected user stats %+v", stats.Users)
	}
	if stats.System.Status != "healthy" || !stats.System.LastUpdated.Equal(now) {
		t.Errorf("unexpected system status %+v", stats.System)
	}
	if !repo.gotWindow.Now.Equal(now) {
		t.Errorf("counts not anchored at the clock")
	}
}

func TestRecentActivity(t *testing.T) {
	at := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }
	repo := &fakeRepo{
		users:   []Entry{{ID: 1, Name: "Asha", CreatedAt: at(1)}, {ID: 2, Name: "Ravi", CreatedAt: at(5)}},
		doctors: []Entry{{ID: 10, Name: "Rao", CreatedAt: at(2)}},
		appts:   []Entry{{ID: 100, Name: "", CreatedAt: at(0)}, {ID: 101, Name: "Asha", CreatedAt: at(3)}},
	}
	svc := newTestService(repo)

	feed, err := svc.RecentActivity(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(feed))
	}
	want := []struct {
		typ string
		msg string
		id  int64
	}{
		{ActivityAppointment, "New appointment scheduled by Unknown", 100},
		{ActivityUserRegistration, "New user registered: Asha", 1},
		{ActivityDoctorApplication, "New doctor application: Dr. Rao", 10},
	}
	for i, w := range want {
		if feed[i].Type != w.typ || feed[i].Message != w.msg || feed[i].EntityID != w.id {
			t.Errorf("entry %d = %+v, want %+v", i, feed[i], w)
		}
	}

	all, _ := svc.RecentActivity(context.Background(), 50)
	if len(all) != 5 {
		t.Errorf("expected all 5 entries, got %d", len(all))
	}
	none, _ := svc.RecentActivity(context.Background(), 0)
	if len(none) != 0 {
		t.Errorf("expected empty feed for limit 0")
	}
}

func TestAppointmentsOverview(t *testing.T) {
	repo := &fakeRepo{
		byStatus: map[string]int{"CONFIRMED": 2, "REQUESTED": 1, "NO_SHOW": 4},
		byType:   map[string]int{"VIDEO": 3},
		rows: []AppointmentRow{
			{ID: 7, Time: time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC), Type: "VIDEO", Status: "CONFIRMED"},
		},
	}
	ov, err := newTestService(repo).AppointmentsOverview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.ByStatus.Confirmed != 2 || ov.ByStatus.Requested != 1 || ov.ByStatus.Cancelled != 0 {
		t.Errorf("unexpected status breakdown %+v", ov.ByStatus)
	}
	if ov.ByType.Video != 3 || ov.ByType.InPerson != 0 {
		t.Errorf("unexpected type breakdown %+v", ov.ByType)
	}
	if ov.Today.Count != 1 || ov.Today.Appointments[0].Time != "09:05" {
		t.Errorf("unexpected today summary %+v", ov.Today)
	}
	if !repo.gotFrom.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) || repo.gotTo.Sub(repo.gotFrom) != 24*time.Hour {
		t.Errorf("today window wrong: %s - %s", repo.gotFrom, repo.gotTo)
	}
}

func TestExport(t *testing.T) {
	repo := &fakeRepo{
		counts: Counts{Users: 10, Doctors: 2, ApprovedDoctors: 1},
		rows: []AppointmentRow{
			{ID: 7, Time: time.Date(2026, 3, 9, 9, 5, 0, 0, time.UTC), Type: "VIDEO", Status: "CONFIRMED", PatientName: "Asha", DoctorName: "Rao"},
		},
	}
	out, err := newTestService(repo).Export(context.Background(), now.AddDate(0, 0, -30), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("summary sheet: %v", err)
	}
	if summary[1][0] != "Users" || summary[1][1] != "10" {
		t.Errorf("unexpected summary row %v", summary[1])
	}
	appts, err := f.GetRows(appointmentsSheet)
	if err != nil {
		t.Fatalf("appointments sheet: %v", err)
	}
	if len(appts) != 2 || appts[1][4] != "Asha" || appts[1][1] != "2026-03-09 09:05" {
		t.Errorf("unexpected appointment rows %v", appts)
	}

	if _, err := newTestService(repo).Export(context.Background(), now, now); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestHandler_Export(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(newTestService(repo))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard/export?from=2026-03-01&to=2026-03-05", nil)
	rec := httptest.NewRecorder()
	if err := h.Export(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(echo.HeaderContentType) != xlsxContentType {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}
	if !repo.gotTo.Equal(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to should include the whole last day, got %s", repo.gotTo)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard/export?from=2026-03-09&to=2026-03-01", nil)
	err := h.Export(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted range, got %v", err)
	}
}

func TestHandler_RecentActivity(t *testing.T) {
	repo := &fakeRepo{users: []Entry{{ID: 1, Name: "Asha", CreatedAt: now}}}
	h := NewHandler(newTestService(repo))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard/recent-activity", nil)
	rec := httptest.NewRecorder()
	if err := h.RecentActivity(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var feed []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || feed[0]["type"] != ActivityUserRegistration || feed[0]["entity_id"] != float64(1) {
		t.Errorf("unexpected feed %v", feed)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard/recent-activity?limit=abc", nil)
	err := h.RecentActivity(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
