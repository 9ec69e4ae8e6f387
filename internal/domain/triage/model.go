package triage

import (
	"time"
)

type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyEmergency Urgency = "EMERGENCY"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// Result is the outcome of analysing a symptom description.
type Result struct {
	SuggestedSpecialization string  `json:"suggested_specialization"`
	Urgency                 Urgency `json:"urgency"`
	RecommendedDoctors      []int64 `json:"recommended_doctors"`
	Advice                  string  `json:"advice"`
}

// SymptomCheck is a stored analysis, kept for the patient's history.
type SymptomCheck struct {
	CheckID                 int64     `json:"check_id"`
	UserID                  *int64    `json:"user_id"`
	Symptoms                string    `json:"symptoms"`
	SuggestedSpecialization string    `json:"suggested_specialization"`
	Urgency                 Urgency   `json:"urgency"`
	RecommendedDoctors      []int64   `json:"recommended_doctors"`
	CreatedAt               time.Time `json:"created_at"`
}

type SymptomCheckRequest struct {
	Symptoms string `json:"symptoms" validate:"required"`
}
