package appointment

import (
	"time"

	"github.com/medbook/medbook/internal/domain/triage"
	"github.com/medbook/medbook/internal/platform/apperr"
)

type Type string

const (
	TypeInPerson Type = "IN_PERSON"
	TypeVideo    Type = "VIDEO"
)

func (t Type) Valid() bool { return t == TypeInPerson || t == TypeVideo }

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

const DefaultDuration = 30

var errAppointmentNotFound = apperr.NotFound("Appointment not found")

// Patient is the short patient reference embedded in appointment responses.
type Patient struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
}

type Appointment struct {
	AppointmentID   int64          `json:"appointment_id"`
	UserID          int64          `json:"user_id"`
	User            *Patient       `json:"user,omitempty"`
	DoctorID        *int64         `json:"doctor_id"`
	HospitalID      *int64         `json:"hospital_id"`
	AppointmentType Type           `json:"appointment_type"`
	VideoLink       *string        `json:"video_link"`
	AppointmentTime time.Time      `json:"appointment_time"`
	Duration        int            `json:"duration"`
	Symptoms        *string        `json:"symptoms"`
	Urgency         triage.Urgency `json:"urgency"`
	Status          Status         `json:"status"`
	Notes           *string        `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type CreateRequest struct {
	UserID          int64           `json:"user_id" validate:"required"`
	DoctorID        *int64          `json:"doctor_id"`
	HospitalID      *int64          `json:"hospital_id"`
	AppointmentType Type            `json:"appointment_type" validate:"required,oneof=IN_PERSON VIDEO"`
	AppointmentTime time.Time       `json:"appointment_time" validate:"required"`
	Duration        *int            `json:"duration" validate:"omitempty,min=1"`
	Symptoms        *string         `json:"symptoms"`
	Urgency         *triage.Urgency `json:"urgency" validate:"omitempty,oneof=LOW MEDIUM HIGH EMERGENCY"`
	Notes           *string         `json:"notes"`
}

// UpdateRequest carries a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	AppointmentTime *time.Time `json:"appointment_time"`
	Duration        *int       `json:"duration" validate:"omitempty,min=1"`
	Notes           *string    `json:"notes"`
	VideoLink       *string    `json:"video_link"`
	Status          *Status    `json:"status" validate:"omitempty,oneof=REQUESTED CONFIRMED CANCELLED COMPLETED NO_SHOW"`
}

type StatusUpdate struct {
	Status Status `json:"status" validate:"required,oneof=REQUESTED CONFIRMED CANCELLED COMPLETED NO_SHOW"`
}

// ListQuery filters appointment listings. When both DoctorID and HospitalID
// are set they are OR'd, which is how a doctor sees hospital-wide bookings.
type ListQuery struct {
	UserID     int64
	DoctorID   int64
	HospitalID int64
	Status     Status
	From       *time.Time
	To         *time.Time
}

// ReminderResult reports the reminder outcome for one appointment.
type ReminderResult struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}
