package notification

import (
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Event builders
// ---------------------------------------------------------------------------

const timeLayout = "2006-01-02 15:04"

// AppointmentInfo is the appointment data the builders need. Doctor fields
// are empty when no doctor is assigned.
type AppointmentInfo struct {
	AppointmentID int64
	UserID        int64
	PatientName   string
	PatientEmail  string
	PatientPhone  string
	DoctorName    string
	DoctorEmail   string
	HospitalName  string
	Type          string
	Time          time.Time
	Symptoms      string
	VideoLink     string
}

// PrescriptionInfo is the prescription data the builders need.
type PrescriptionInfo struct {
	PrescriptionID   int64
	UserID           int64
	PatientName      string
	PatientEmail     string
	PatientPhone     string
	DoctorName       string
	Diagnosis        string
	MedicationsCount int
	PDF              []byte
}

// TemplateIDs are the external template identifiers forwarded to HTTP relays.
type TemplateIDs struct {
	Confirmation string
	Reminder     string
	Prescription string
}

// Builder turns domain data into Events using the template engine.
type Builder struct {
	templates *TemplateEngine
	ids       TemplateIDs
}

func NewBuilder(templates *TemplateEngine, ids TemplateIDs) *Builder {
	if templates == nil {
		templates = NewTemplateEngine()
	}
	return &Builder{templates: templates, ids: ids}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// AppointmentConfirmation notifies the patient by email and SMS and the
// assigned doctor by email.
func (b *Builder) AppointmentConfirmation(a AppointmentInfo) Event {
	when := a.Time.UTC().Format(timeLayout)
	ev := Event{Name: "appointment_confirmation"}

	patientData := map[string]string{
		"patient_name":     a.PatientName,
		"doctor_name":      orDefault(a.DoctorName, "(to be assigned)"),
		"appointment_time": when,
		"hospital_name":    orDefault(a.HospitalName, "Clinic"),
		"appointment_type": a.Type,
		"video_link":       orDefault(a.VideoLink, "N/A"),
	}
	if r, err := b.templates.Render(TemplateConfirmationPatient, patientData); err == nil {
		ev.Messages = append(ev.Messages,
			Message{
				Channel:      ChannelEmail,
				Recipient:    a.PatientEmail,
				Subject:      r.Subject,
				Body:         r.Body,
				TemplateID:   b.ids.Confirmation,
				TemplateData: patientData,
			},
			Message{Channel: ChannelSMS, Recipient: a.PatientPhone, Body: r.SMS},
		)
	}

	if a.DoctorEmail != "" {
		doctorData := map[string]string{
			"doctor_name":      a.DoctorName,
			"patient_name":     a.PatientName,
			"appointment_time": when,
			"symptoms":         orDefault(a.Symptoms, "Not specified"),
			"appointment_type": a.Type,
			"video_link":       orDefault(a.VideoLink, "N/A"),
		}
		if r, err := b.templates.Render(TemplateConfirmationDoctor, doctorData); err == nil {
			ev.Messages = append(ev.Messages, Message{
				Channel:      ChannelEmail,
				Recipient:    a.DoctorEmail,
				Subject:      r.Subject,
				Body:         r.Body,
				TemplateID:   b.ids.Confirmation,
				TemplateData: doctorData,
			})
		}
	}
	return ev
}

// AppointmentReminder reminds the patient by email, SMS and push.
func (b *Builder) AppointmentReminder(a AppointmentInfo, hoursBefore int) Event {
	data := map[string]string{
		"patient_name":     a.PatientName,
		"doctor_name":      orDefault(a.DoctorName, "(to be assigned)"),
		"appointment_time": a.Time.UTC().Format(timeLayout),
		"hospital_name":    orDefault(a.HospitalName, "Clinic"),
		"appointment_type": a.Type,
		"hours_before":     strconv.Itoa(hoursBefore),
	}
	ev := Event{Name: "appointment_reminder"}
	r, err := b.templates.Render(TemplateReminder, data)
	if err != nil {
		return ev
	}
	ev.Messages = []Message{
		{
			Channel:      ChannelEmail,
			Recipient:    a.PatientEmail,
			Subject:      r.Subject,
			Body:         r.Body,
			TemplateID:   b.ids.Reminder,
			TemplateData: data,
		},
		{Channel: ChannelSMS, Recipient: a.PatientPhone, Body: r.SMS},
		{
			Channel:   ChannelPush,
			Recipient: strconv.FormatInt(a.UserID, 10),
			Subject:   r.PushTitle,
			Body:      r.PushBody,
			Data:      map[string]interface{}{"appointment_id": a.AppointmentID},
		},
	}
	return ev
}

// PrescriptionReady tells the patient a prescription was issued. The email
// carries the rendered PDF when one is supplied.
func (b *Builder) PrescriptionReady(p PrescriptionInfo) Event {
	data := map[string]string{
		"patient_name":      p.PatientName,
		"doctor_name":       p.DoctorName,
		"diagnosis":         p.Diagnosis,
		"medications_count": strconv.Itoa(p.MedicationsCount),
	}
	ev := Event{Name: "prescription_ready"}
	r, err := b.templates.Render(TemplatePrescriptionReady, data)
	if err != nil {
		return ev
	}

	email := Message{
		Channel:      ChannelEmail,
		Recipient:    p.PatientEmail,
		Subject:      r.Subject,
		Body:         r.Body,
		TemplateID:   b.ids.Prescription,
		TemplateData: data,
	}
	if len(p.PDF) > 0 {
		email.Attachments = []Attachment{{
			Name:    "prescription_" + strconv.FormatInt(p.PrescriptionID, 10) + ".pdf",
			Content: p.PDF,
		}}
	}

	ev.Messages = []Message{
		email,
		{Channel: ChannelSMS, Recipient: p.PatientPhone, Body: r.SMS},
		{
			Channel:   ChannelPush,
			Recipient: strconv.FormatInt(p.UserID, 10),
			Subject:   r.PushTitle,
			Body:      r.PushBody,
			Data:      map[string]interface{}{"prescription_id": p.PrescriptionID},
		},
	}
	return ev
}
