package prescription

import (
	"time"

	"github.com/medbook/medbook/internal/platform/apperr"
)

var errPrescriptionNotFound = apperr.NotFound("Prescription not found")

type Medication struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage" validate:"required"`
	Frequency string `json:"frequency" validate:"required"`
	Duration  string `json:"duration" validate:"required"`
}

type Prescription struct {
	PrescriptionID int64        `json:"prescription_id"`
	AppointmentID  int64        `json:"appointment_id"`
	DoctorID       int64        `json:"doctor_id"`
	UserID         int64        `json:"user_id"`
	Diagnosis      string       `json:"diagnosis"`
	Medications    []Medication `json:"medications"`
	Instructions   *string      `json:"instructions"`
	FollowUpDate   *time.Time   `json:"follow_up_date"`
	CreatedAt      time.Time    `json:"created_at"`
}

type CreateRequest struct {
	AppointmentID int64        `json:"appointment_id" validate:"required"`
	Diagnosis     string       `json:"diagnosis" validate:"required"`
	Medications   []Medication `json:"medications" validate:"required,min=1,dive"`
	Instructions  *string      `json:"instructions"`
	// FollowUpDate is a calendar date, YYYY-MM-DD.
	FollowUpDate *string `json:"follow_up_date"`
}

// Query scopes a listing; zero fields are ignored.
type Query struct {
	UserID   int64
	DoctorID int64
}
