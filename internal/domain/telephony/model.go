package telephony

import (
	"time"

	"github.com/medbook/medbook/internal/domain/triage"
	"github.com/medbook/medbook/internal/platform/apperr"
)

type CallStatus string

const (
	CallAnalyzed  CallStatus = "ANALYZED"
	CallBooked    CallStatus = "BOOKED"
	CallCompleted CallStatus = "COMPLETED"
)

const (
	emergencyAdvice = "Please go to the nearest emergency room immediately or call emergency services."
	defaultClinic   = "Clinic"
	// bookingHourUTC is used when the caller gives no preferred time.
	bookingHourUTC = 10
)

var (
	errCallNotFound     = apperr.NotFound("Call booking not found")
	errNoDoctors        = apperr.NotFound("No available doctors found")
	errUnmatchedCaller  = apperr.BadInput("Caller is not a registered user")
	errAlreadyScheduled = apperr.Conflict("Appointment already scheduled for this call")
)

// CallBooking records one inbound call and what came of it.
type CallBooking struct {
	CallID                  int64           `json:"call_id"`
	CallerNumber            string          `json:"caller_number"`
	UserID                  *int64          `json:"user_id"`
	Symptoms                *string         `json:"symptoms"`
	SuggestedSpecialization *string         `json:"suggested_specialization"`
	Urgency                 *triage.Urgency `json:"urgency"`
	BookedAppointmentID     *int64          `json:"booked_appointment_id"`
	CallTimestamp           time.Time       `json:"call_timestamp"`
	CallDuration            *int            `json:"call_duration"`
	Status                  CallStatus      `json:"status"`
}

// CallResponse is returned to the telephony provider for an inbound call.
type CallResponse struct {
	CallerNumber    string         `json:"caller_number"`
	Status          string         `json:"status"`
	Message         string         `json:"message"`
	CallID          *int64         `json:"call_id,omitempty"`
	Analysis        *triage.Result `json:"analysis,omitempty"`
	EmergencyAdvice string         `json:"emergency_advice,omitempty"`
}

// ScheduleResponse confirms an appointment booked from a call.
type ScheduleResponse struct {
	AppointmentID   int64     `json:"appointment_id"`
	DoctorName      string    `json:"doctor_name"`
	HospitalName    string    `json:"hospital_name"`
	AppointmentTime time.Time `json:"appointment_time"`
	Message         string    `json:"message"`
}
