package dashboard

import "time"

// Window fixes the reference instants for one report so every figure in it
// agrees on what "today" means.
type Window struct {
	Now      time.Time
	DayStart time.Time
	DayEnd   time.Time
	MonthAgo time.Time
	WeekAgo  time.Time
}

// NewWindow anchors a window at now, using UTC calendar days.
func NewWindow(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Now:      now,
		DayStart: start,
		DayEnd:   start.AddDate(0, 0, 1),
		MonthAgo: now.AddDate(0, 0, -30),
		WeekAgo:  now.AddDate(0, 0, -7),
	}
}

// Counts are the raw figures behind Stats.
type Counts struct {
	Users                int
	NewUsers             int
	Doctors              int
	PendingDoctors       int
	ApprovedDoctors      int
	Hospitals            int
	PendingHospitals     int
	ApprovedHospitals    int
	Appointments         int
	TodayAppointments    int
	UpcomingAppointments int
	Prescriptions        int
	RecentPrescriptions  int
}

type UserStats struct {
	Total        int `json:"total"`
	NewThisMonth int `json:"new_this_month"`
	ActiveToday  int `json:"active_today"`
}

// ModerationStats summarises an entity that goes through admin approval.
type ModerationStats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Approved     int     `json:"approved"`
	ApprovalRate float64 `json:"approval_rate"`
}

type AppointmentStats struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	Upcoming int `json:"upcoming"`
}

type PrescriptionStats struct {
	Total  int `json:"total"`
	Recent int `json:"recent"`
}

type SystemStatus struct {
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

type Stats struct {
	Users         UserStats         `json:"users"`
	Doctors       ModerationStats   `json:"doctors"`
	Hospitals     ModerationStats   `json:"hospitals"`
	Appointments  AppointmentStats  `json:"appointments"`
	Prescriptions PrescriptionStats `json:"prescriptions"`
	System        SystemStatus      `json:"system"`
}

// Entry is a newly created row of some entity, used for the activity feed.
// Name is empty when the related user is gone.
type Entry struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

const (
	ActivityUserRegistration  = "user_registration"
	ActivityDoctorApplication = "doctor_application"
	ActivityAppointment       = "appointment_created"
)

type Activity struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	EntityID  int64     `json:"entity_id"`
}

// AppointmentRow is an appointment as listed in reports.
type AppointmentRow struct {
	ID          int64
	Time        time.Time
	Type        string
	Status      string
	PatientName string
	DoctorName  string
}

type StatusBreakdown struct {
	Confirmed int `json:"confirmed"`
	Requested int `json:"requested"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type TypeBreakdown struct {
	InPerson int `json:"in_person"`
	Video    int `json:"video"`
}

type TodayItem struct {
	ID     int64  `json:"id"`
	Time   string `json:"time"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type TodaySummary struct {
	Count        int         `json:"count"`
	Appointments []TodayItem `json:"appointments"`
}

type Overview struct {
	ByStatus StatusBreakdown `json:"by_status"`
	ByType   TypeBreakdown   `json:"by_type"`
	Today    TodaySummary    `json:"today"`
}
