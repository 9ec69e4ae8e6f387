package prescription

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/notification"
)

var (
	errNotAuthorized        = apperr.Forbidden("Not authorized")
	errNotAssignedToVisit   = apperr.Forbidden("Not authorized to create prescription for this appointment")
	errMedicationsRequired  = apperr.BadInput("at least one medication is required")
	errMedicationIncomplete = apperr.BadInput("each medication needs name, dosage, frequency and duration")
)

type Appointments interface {
	Find(ctx context.Context, id int64) (*appointment.Appointment, error)
}

type Directory interface {
	GetUser(ctx context.Context, id int64) (*identity.User, error)
	GetDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) notification.Report
}

type Service struct {
	repo         Repository
	appointments Appointments
	directory    Directory
	notifier     Notifier
	events       *notification.Builder
	attachPDF    bool
	logger       zerolog.Logger
}

func NewService(repo Repository, appointments Appointments, directory Directory,
	notifier Notifier, events *notification.Builder, logger zerolog.Logger) *Service {
	if events == nil {
		events = notification.NewBuilder(nil, notification.TemplateIDs{})
	}
	return &Service{
		repo:         repo,
		appointments: appointments,
		directory:    directory,
		notifier:     notifier,
		events:       events,
		logger:       logger,
	}
}

// WithPDFAttachments makes the prescription-ready email carry the rendered
// PDF. Only useful when the email channel can send attachments.
func (s *Service) WithPDFAttachments(on bool) *Service {
	s.attachPDF = on
	return s
}

func validateMedications(meds []Medication) error {
	if len(meds) == 0 {
		return errMedicationsRequired
	}
	for _, m := range meds {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" ||
			strings.TrimSpace(m.Frequency) == "" || strings.TrimSpace(m.Duration) == "" {
			return errMedicationIncomplete
		}
	}
	return nil
}

// Create issues a prescription for an appointment assigned to doctor. An
// appointment carries at most one prescription.
func (s *Service) Create(ctx context.Context, doctor *identity.Doctor, req CreateRequest) (*Prescription, error) {
	if strings.TrimSpace(req.Diagnosis) == "" {
		return nil, apperr.BadInput("diagnosis is required")
	}
	if err := validateMedications(req.Medications); err != nil {
		return nil, err
	}

	appt, err := s.appointments.Find(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID == nil || *appt.DoctorID != doctor.DoctorID {
		return nil, errNotAssignedToVisit
	}

	p := &Prescription{
		AppointmentID: appt.AppointmentID,
		DoctorID:      doctor.DoctorID,
		UserID:        appt.UserID,
		Diagnosis:     req.Diagnosis,
		Medications:   req.Medications,
		Instructions:  req.Instructions,
	}
	if req.FollowUpDate != nil && *req.FollowUpDate != "" {
		d, err := time.Parse("2006-01-02", *req.FollowUpDate)
		if err != nil {
			return nil, apperr.BadInput("follow_up_date must be YYYY-MM-DD")
		}
		p.FollowUpDate = &d
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.notifyReady(ctx, p, doctor)
	return p, nil
}

func (s *Service) notifyReady(ctx context.Context, p *Prescription, doctor *identity.Doctor) {
	patient, err := s.directory.GetUser(ctx, p.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("prescription_id", p.PrescriptionID).Msg("skip prescription notification")
		return
	}
	info := notification.PrescriptionInfo{
		PrescriptionID:   p.PrescriptionID,
		UserID:           p.UserID,
		PatientName:      patient.Name,
		PatientEmail:     patient.Email,
		DoctorName:       doctor.Name,
		Diagnosis:        p.Diagnosis,
		MedicationsCount: len(p.Medications),
	}
	if patient.Phone != nil {
		info.PatientPhone = *patient.Phone
	}
	if s.attachPDF {
		pdf, err := RenderPDF(documentFor(p, patient, doctor))
		if err != nil {
			s.logger.Warn().Err(err).Int64("prescription_id", p.PrescriptionID).Msg("send prescription email without pdf")
		} else {
			info.PDF = pdf
		}
	}
	s.notifier.Dispatch(ctx, s.events.PrescriptionReady(info))
}

func documentFor(p *Prescription, patient *identity.User, doctor *identity.Doctor) Document {
	return Document{
		Prescription: p,
		PatientName:  patient.Name,
		DoctorName:   doctor.Name,
		Specialty:    doctor.Specialization,
		License:      doctor.LicenseNumber,
	}
}

// -- Read --

func canRead(pr identity.Principal, p *Prescription) bool {
	switch v := pr.(type) {
	case identity.UserPrincipal:
		return p.UserID == v.User.UserID
	case identity.DoctorPrincipal:
		return p.DoctorID == v.Doctor.DoctorID
	case identity.AdminPrincipal:
		return true
	}
	return false
}

func (s *Service) Get(ctx context.Context, pr identity.Principal, id int64) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(pr, p) {
		return nil, errNotAuthorized
	}
	return p, nil
}

// List returns the caller's prescriptions: as patient, as author, or all
// for admins.
func (s *Service) List(ctx context.Context, pr identity.Principal, limit, offset int) ([]*Prescription, int, error) {
	var q Query
	switch v := pr.(type) {
	case identity.UserPrincipal:
		q.UserID = v.User.UserID
	case identity.DoctorPrincipal:
		q.DoctorID = v.Doctor.DoctorID
	case identity.AdminPrincipal:
	default:
		return nil, 0, errNotAuthorized
	}
	return s.repo.List(ctx, q, limit, offset)
}

// PDF renders a readable prescription for the caller.
func (s *Service) PDF(ctx context.Context, pr identity.Principal, id int64) ([]byte, error) {
	p, err := s.Get(ctx, pr, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.directory.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.directory.GetDoctor(ctx, p.DoctorID)
	if err != nil {
		return nil, err
	}
	return RenderPDF(documentFor(p, patient, doctor))
}
