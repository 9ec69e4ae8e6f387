package telephony

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/hospital"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/triage"
	"github.com/medbook/medbook/internal/platform/apperr"
)

type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*triage.Result, error)
}

type Users interface {
	FindUserByPhone(ctx context.Context, phone string) (*identity.User, error)
}

type Doctors interface {
	ApprovedBySpecialization(ctx context.Context, spec string, limit int) ([]*identity.Doctor, error)
}

// Booker creates appointments on behalf of the system.
type Booker interface {
	Book(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
}

type Hospitals interface {
	Get(ctx context.Context, id int64) (*hospital.Hospital, error)
}

type Service struct {
	repo      Repository
	triage    Analyzer
	users     Users
	doctors   Doctors
	booker    Booker
	hospitals Hospitals
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, triage Analyzer, users Users, doctors Doctors,
	booker Booker, hospitals Hospitals, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		triage:    triage,
		users:     users,
		doctors:   doctors,
		booker:    booker,
		hospitals: hospitals,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleIncomingCall analyses the caller's transcribed speech and records the
// call. Without speech there is nothing to analyse and no record is kept.
func (s *Service) HandleIncomingCall(ctx context.Context, callerNumber, speech string) (*CallResponse, error) {
	callerNumber = strings.TrimSpace(callerNumber)
	if callerNumber == "" {
		return nil, apperr.BadInput("caller_number is required")
	}
	resp := &CallResponse{
		CallerNumber: callerNumber,
		Status:       "handled",
		Message:      "Call received successfully",
	}
	speech = strings.TrimSpace(speech)
	if speech == "" {
		return resp, nil
	}

	analysis, err := s.triage.Analyze(ctx, speech)
	if err != nil {
		return nil, err
	}

	call := &CallBooking{
		CallerNumber:            callerNumber,
		Symptoms:                &speech,
		SuggestedSpecialization: &analysis.SuggestedSpecialization,
		Urgency:                 &analysis.Urgency,
		Status:                  CallAnalyzed,
	}
	user, err := s.users.FindUserByPhone(ctx, callerNumber)
	switch {
	case err == nil:
		call.UserID = &user.UserID
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, err
	}

	if err := s.repo.Create(ctx, call); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("call_id", call.CallID).
		Str("specialization", analysis.SuggestedSpecialization).
		Str("urgency", string(analysis.Urgency)).
		Bool("matched_user", call.UserID != nil).
		Msg("inbound call analysed")

	resp.CallID = &call.CallID
	resp.Analysis = analysis
	if analysis.Urgency == triage.UrgencyEmergency {
		resp.EmergencyAdvice = emergencyAdvice
	}
	return resp, nil
}

// defaultSlot is 10:00 UTC on the day after now.
func defaultSlot(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), bookingHourUTC, 0, 0, 0, time.UTC)
}

// pickDoctor returns the first approved doctor of spec, falling back to a
// general physician.
func (s *Service) pickDoctor(ctx context.Context, spec string) (*identity.Doctor, error) {
	candidates := []string{spec}
	if spec != triage.DefaultSpecialization {
		candidates = append(candidates, triage.DefaultSpecialization)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		doctors, err := s.doctors.ApprovedBySpecialization(ctx, c, 1)
		if err != nil {
			return nil, err
		}
		if len(doctors) > 0 {
			return doctors[0], nil
		}
	}
	return nil, errNoDoctors
}

// ScheduleFromCall books an in-person appointment for an analysed call.
// A nil preferred time books the default slot.
func (s *Service) ScheduleFromCall(ctx context.Context, callID int64, preferred *time.Time) (*ScheduleResponse, error) {
	call, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID == nil {
		return nil, errUnmatchedCaller
	}
	if call.BookedAppointmentID != nil {
		return nil, errAlreadyScheduled
	}

	spec := ""
	if call.SuggestedSpecialization != nil {
		spec = *call.SuggestedSpecialization
	}
	doctor, err := s.pickDoctor(ctx, spec)
	if err != nil {
		return nil, err
	}

	at := defaultSlot(s.now())
	if preferred != nil {
		at = *preferred
	}
	appt, err := s.booker.Book(ctx, appointment.CreateRequest{
		UserID:          *call.UserID,
		DoctorID:        &doctor.DoctorID,
		HospitalID:      doctor.HospitalID,
		AppointmentType: appointment.TypeInPerson,
		AppointmentTime: at,
		Symptoms:        call.Symptoms,
		Urgency:         call.Urgency,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkBooked(ctx, call.CallID, appt.AppointmentID); err != nil {
		return nil, err
	}

	return &ScheduleResponse{
		AppointmentID:   appt.AppointmentID,
		DoctorName:      doctor.Name,
		HospitalName:    s.hospitalName(ctx, doctor.HospitalID),
		AppointmentTime: appt.AppointmentTime,
		Message:         "Appointment scheduled successfully",
	}, nil
}

func (s *Service) hospitalName(ctx context.Context, id *int64) string {
	if id == nil {
		return defaultClinic
	}
	h, err := s.hospitals.Get(ctx, *id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("hospital_id", *id).Msg("hospital lookup failed")
		return defaultClinic
	}
	return h.Name
}

func (s *Service) Calls(ctx context.Context, limit, offset int) ([]*CallBooking, int, error) {
	return s.repo.List(ctx, limit, offset)
}
