package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/hospital"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/triage"
	"github.com/medbook/medbook/internal/domain/video"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/notification"
)

var errNotAuthorized = apperr.Forbidden("Not authorized")

// Directory resolves the people an appointment refers to.
type Directory interface {
	GetUser(ctx context.Context, id int64) (*identity.User, error)
	GetDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
}

type Hospitals interface {
	Get(ctx context.Context, id int64) (*hospital.Hospital, error)
}

type LinkMinter interface {
	Mint(ctx context.Context, appointmentID int64) (string, video.Provider)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) notification.Report
}

type Service struct {
	repo      Repository
	directory Directory
	hospitals Hospitals
	video     LinkMinter
	notifier  Notifier
	events    *notification.Builder
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, directory Directory, hospitals Hospitals, minter LinkMinter,
	notifier Notifier, events *notification.Builder, logger zerolog.Logger) *Service {
	if events == nil {
		events = notification.NewBuilder(nil, notification.TemplateIDs{})
	}
	return &Service{
		repo:      repo,
		directory: directory,
		hospitals: hospitals,
		video:     minter,
		notifier:  notifier,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for reminder windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// -- Authorization --

// canAccess is the write rule shared by update and delete: the owning
// patient, the assigned doctor, or any admin.
func canAccess(p identity.Principal, a *Appointment) bool {
	switch v := p.(type) {
	case identity.UserPrincipal:
		return a.UserID == v.User.UserID
	case identity.DoctorPrincipal:
		return a.DoctorID != nil && *a.DoctorID == v.Doctor.DoctorID
	case identity.AdminPrincipal:
		return true
	}
	return false
}

// canView matches the List scope: canAccess plus doctors of the
// appointment's hospital.
func canView(p identity.Principal, a *Appointment) bool {
	if canAccess(p, a) {
		return true
	}
	dp, ok := p.(identity.DoctorPrincipal)
	return ok && a.HospitalID != nil && dp.Doctor.HospitalID != nil && *a.HospitalID == *dp.Doctor.HospitalID
}

// canSetStatus allows only the assigned doctor or an admin.
func canSetStatus(p identity.Principal, a *Appointment) bool {
	switch v := p.(type) {
	case identity.UserPrincipal:
		return false
	case identity.DoctorPrincipal:
		return a.DoctorID != nil && *a.DoctorID == v.Doctor.DoctorID
	case identity.AdminPrincipal:
		return true
	}
	return false
}

// -- Transitions --

var transitions = map[Status][]Status{
	StatusRequested: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// -- Create --

// Create books an appointment for the caller. Patients may only book for
// themselves; doctors and admins may book for any existing patient.
func (s *Service) Create(ctx context.Context, p identity.Principal, req CreateRequest) (*Appointment, error) {
	if up, ok := p.(identity.UserPrincipal); ok && req.UserID != up.User.UserID {
		return nil, errNotAuthorized
	}
	return s.Book(ctx, req)
}

// Book creates an appointment without a caller check. It is used by trusted
// internal flows such as telephony booking.
func (s *Service) Book(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if !req.AppointmentType.Valid() {
		return nil, apperr.BadInput(fmt.Sprintf("invalid appointment type %q", req.AppointmentType))
	}
	if req.AppointmentTime.IsZero() {
		return nil, apperr.BadInput("appointment_time is required")
	}

	user, err := s.directory.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.DoctorID != nil {
		if _, err := s.directory.GetDoctor(ctx, *req.DoctorID); err != nil {
			return nil, err
		}
	}
	if req.HospitalID != nil {
		if _, err := s.hospitals.Get(ctx, *req.HospitalID); err != nil {
			return nil, err
		}
	}

	a := &Appointment{
		UserID:          req.UserID,
		DoctorID:        req.DoctorID,
		HospitalID:      req.HospitalID,
		AppointmentType: req.AppointmentType,
		AppointmentTime: req.AppointmentTime.UTC(),
		Duration:        DefaultDuration,
		Symptoms:        req.Symptoms,
		Urgency:         triage.UrgencyMedium,
		Status:          StatusRequested,
		Notes:           req.Notes,
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, apperr.BadInput("duration must be positive")
		}
		a.Duration = *req.Duration
	}
	if req.Urgency != nil {
		if !req.Urgency.Valid() {
			return nil, apperr.BadInput(fmt.Sprintf("invalid urgency %q", *req.Urgency))
		}
		a.Urgency = *req.Urgency
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	a.User = &Patient{UserID: user.UserID, FullName: user.Name}

	if a.AppointmentType == TypeVideo {
		if err := s.attachVideoLink(ctx, a); err != nil {
			return nil, err
		}
	}

	s.notifyConfirmation(ctx, a)
	return a, nil
}

func (s *Service) attachVideoLink(ctx context.Context, a *Appointment) error {
	link, provider := s.video.Mint(ctx, a.AppointmentID)
	a.VideoLink = &link
	s.logger.Debug().Int64("appointment_id", a.AppointmentID).Str("provider", string(provider)).Msg("video link minted")
	return s.repo.Update(ctx, a)
}

// -- Read --

func (s *Service) Get(ctx context.Context, p identity.Principal, id int64) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(p, a) {
		return nil, errNotAuthorized
	}
	return a, nil
}

// Find loads an appointment without a visibility check, for callers that
// apply their own authorization.
func (s *Service) Find(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List scopes the listing to the caller: patients see their own, doctors see
// their own plus their hospital's, admins see everything.
func (s *Service) List(ctx context.Context, p identity.Principal, status Status, limit, offset int) ([]*Appointment, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.BadInput(fmt.Sprintf("invalid status %q", status))
	}
	q := ListQuery{Status: status}
	switch v := p.(type) {
	case identity.UserPrincipal:
		q.UserID = v.User.UserID
	case identity.DoctorPrincipal:
		q.DoctorID = v.Doctor.DoctorID
		if v.Doctor.HospitalID != nil {
			q.HospitalID = *v.Doctor.HospitalID
		}
	case identity.AdminPrincipal:
	default:
		return nil, 0, errNotAuthorized
	}
	return s.repo.List(ctx, q, limit, offset)
}

// -- Update --

// Update applies a partial update. A status change is limited to the callers
// UpdateStatus accepts and obeys the same transition rules.
func (s *Service) Update(ctx context.Context, p identity.Principal, id int64, req UpdateRequest) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(p, a) {
		return nil, errNotAuthorized
	}
	if req.Status != nil && *req.Status != a.Status && !canSetStatus(p, a) {
		return nil, errNotAuthorized
	}

	if req.AppointmentTime != nil {
		a.AppointmentTime = req.AppointmentTime.UTC()
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, apperr.BadInput("duration must be positive")
		}
		a.Duration = *req.Duration
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if req.VideoLink != nil {
		a.VideoLink = req.VideoLink
	}

	confirmed := false
	if req.Status != nil && *req.Status != a.Status {
		if confirmed, err = s.moveTo(ctx, a, *req.Status); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	if confirmed {
		s.notifyConfirmation(ctx, a)
	}
	return a, nil
}

// UpdateStatus moves an appointment through its lifecycle. Only the assigned
// doctor or an admin may do so.
func (s *Service) UpdateStatus(ctx context.Context, p identity.Principal, id int64, to Status) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSetStatus(p, a) {
		return nil, errNotAuthorized
	}
	confirmed, err := s.moveTo(ctx, a, to)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	if confirmed {
		s.notifyConfirmation(ctx, a)
	}
	return a, nil
}

// moveTo validates and applies a status change on a. It reports whether the
// appointment entered CONFIRMED so the caller can notify after saving.
func (s *Service) moveTo(ctx context.Context, a *Appointment, to Status) (bool, error) {
	if !to.Valid() {
		return false, apperr.BadInput(fmt.Sprintf("invalid status %q", to))
	}
	if !canTransition(a.Status, to) {
		return false, apperr.BadInput(fmt.Sprintf("cannot change appointment status from %s to %s", a.Status, to))
	}
	if to != StatusConfirmed {
		a.Status = to
		return false, nil
	}

	if a.DoctorID != nil {
		d, err := s.directory.GetDoctor(ctx, *a.DoctorID)
		if err != nil {
			return false, err
		}
		if d.Status != identity.DoctorApproved {
			return false, apperr.BadInput("Doctor is not approved")
		}
	}
	if a.HospitalID != nil {
		h, err := s.hospitals.Get(ctx, *a.HospitalID)
		if err != nil {
			return false, err
		}
		if h.Status != hospital.StatusApproved {
			return false, apperr.BadInput("Hospital is not approved")
		}
	}
	if a.AppointmentType == TypeVideo && (a.VideoLink == nil || *a.VideoLink == "") {
		link, _ := s.video.Mint(ctx, a.AppointmentID)
		a.VideoLink = &link
	}
	a.Status = StatusConfirmed
	return true, nil
}

// -- Delete --

func (s *Service) Delete(ctx context.Context, p identity.Principal, id int64) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(p, a) {
		return errNotAuthorized
	}
	return s.repo.Delete(ctx, id)
}

// -- Notifications --

func (s *Service) appointmentInfo(ctx context.Context, a *Appointment) (notification.AppointmentInfo, error) {
	info := notification.AppointmentInfo{
		AppointmentID: a.AppointmentID,
		UserID:        a.UserID,
		Type:          string(a.AppointmentType),
		Time:          a.AppointmentTime,
	}
	if a.Symptoms != nil {
		info.Symptoms = *a.Symptoms
	}
	if a.VideoLink != nil {
		info.VideoLink = *a.VideoLink
	}

	u, err := s.directory.GetUser(ctx, a.UserID)
	if err != nil {
		return info, fmt.Errorf("load patient: %w", err)
	}
	info.PatientName = u.Name
	info.PatientEmail = u.Email
	if u.Phone != nil {
		info.PatientPhone = *u.Phone
	}

	if a.DoctorID != nil {
		d, err := s.directory.GetDoctor(ctx, *a.DoctorID)
		if err != nil {
			return info, fmt.Errorf("load doctor: %w", err)
		}
		info.DoctorName = d.Name
		info.DoctorEmail = d.Email
	}
	if a.HospitalID != nil {
		h, err := s.hospitals.Get(ctx, *a.HospitalID)
		if err != nil {
			return info, fmt.Errorf("load hospital: %w", err)
		}
		info.HospitalName = h.Name
	}
	return info, nil
}

// notifyConfirmation never fails the caller; problems are logged.
func (s *Service) notifyConfirmation(ctx context.Context, a *Appointment) {
	info, err := s.appointmentInfo(ctx, a)
	if err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", a.AppointmentID).Msg("skip confirmation notification")
		return
	}
	s.notifier.Dispatch(ctx, s.events.AppointmentConfirmation(info))
}

// SendReminders notifies patients of CONFIRMED appointments starting within
// the next hoursBefore hours.
func (s *Service) SendReminders(ctx context.Context, hoursBefore int) ([]ReminderResult, error) {
	if hoursBefore <= 0 {
		return nil, apperr.BadInput("hours_before must be positive")
	}
	now := s.now().UTC()
	due, err := s.repo.Due(ctx, now, now.Add(time.Duration(hoursBefore)*time.Hour))
	if err != nil {
		return nil, err
	}

	results := make([]ReminderResult, 0, len(due))
	for _, a := range due {
		res := ReminderResult{AppointmentID: a.AppointmentID, Status: "success"}
		info, err := s.appointmentInfo(ctx, a)
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		report := s.notifier.Dispatch(ctx, s.events.AppointmentReminder(info, hoursBefore))
		if !report.OK() {
			var msgs []string
			for _, f := range report.Failures() {
				msgs = append(msgs, fmt.Sprintf("%s: %s", f.Channel, f.Error))
			}
			res.Status = "error"
			res.Error = strings.Join(msgs, "; ")
		}
		results = append(results, res)
	}
	s.logger.Info().Int("hours_before", hoursBefore).Int("appointments", len(results)).Msg("reminders sent")
	return results, nil
}
