package hospital

import (
	"time"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

var errHospitalNotFound = apperr.NotFound("Hospital not found")

// Hospital maps to the hospitals table.
type Hospital struct {
	HospitalID    int64     `json:"hospital_id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	LocationLat   float64   `json:"location_lat"`
	LocationLong  float64   `json:"location_long"`
	ContactNumber string    `json:"contact_number"`
	Email         *string   `json:"email"`
	Website       *string   `json:"website"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type HospitalCreate struct {
	Name          string  `json:"name" validate:"required"`
	Address       string  `json:"address" validate:"required"`
	LocationLat   float64 `json:"location_lat" validate:"min=-90,max=90"`
	LocationLong  float64 `json:"location_long" validate:"min=-180,max=180"`
	ContactNumber string  `json:"contact_number" validate:"required"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Website       *string `json:"website"`
}

type HospitalSearch struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Query narrows a hospital listing. Zero fields are ignored.
type Query struct {
	Status   Status
	Name     string
	Location string
}
