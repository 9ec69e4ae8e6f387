package identity

import (
	"time"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type DoctorStatus string

const (
	DoctorPending   DoctorStatus = "PENDING"
	DoctorApproved  DoctorStatus = "APPROVED"
	DoctorRejected  DoctorStatus = "REJECTED"
	DoctorSuspended DoctorStatus = "SUSPENDED"
)

var (
	errUserNotFound   = apperr.NotFound("User not found")
	errDoctorNotFound = apperr.NotFound("Doctor not found")
	errAdminNotFound  = apperr.NotFound("Admin not found")
)

// User maps to the users table. Users are the patients of the platform.
type User struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Age          *int      `db:"age" json:"age,omitempty"`
	Gender       *Gender   `db:"gender" json:"gender,omitempty"`
	Location     *string   `db:"location" json:"location,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctors table.
type Doctor struct {
	DoctorID        int64        `db:"doctor_id" json:"doctor_id"`
	Name            string       `db:"name" json:"name"`
	Email           string       `db:"email" json:"email"`
	Phone           *string      `db:"phone" json:"phone,omitempty"`
	PasswordHash    string       `db:"password_hash" json:"-"`
	Specialization  string       `db:"specialization" json:"specialization"`
	LicenseNumber   string       `db:"license_number" json:"license_number"`
	ExperienceYears int          `db:"experience_years" json:"experience_years"`
	Qualifications  *string      `db:"qualifications" json:"qualifications,omitempty"`
	Bio             *string      `db:"bio" json:"bio,omitempty"`
	Status          DoctorStatus `db:"status" json:"status"`
	HospitalID      *int64       `db:"hospital_id" json:"hospital_id,omitempty"`
	ConsultationFee float64      `db:"consultation_fee" json:"consultation_fee"`
	Availability    *string      `db:"availability" json:"availability,omitempty"`
	IsOnline        bool         `db:"is_online" json:"is_online"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// Admin maps to the admins table.
type Admin struct {
	AdminID      int64     `db:"admin_id" json:"admin_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// -- Requests --

type UserCreate struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" validate:"required"`
	Age      *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Gender   *Gender `json:"gender" validate:"omitempty,oneof=M F O"`
	Location *string `json:"location"`
	Address  *string `json:"address"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Age      *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Gender   *Gender `json:"gender" validate:"omitempty,oneof=M F O"`
	Location *string `json:"location"`
	Address  *string `json:"address"`
}

type DoctorCreate struct {
	Name            string  `json:"name" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Phone           *string `json:"phone"`
	Password        string  `json:"password" validate:"required"`
	Specialization  string  `json:"specialization" validate:"required"`
	LicenseNumber   string  `json:"license_number" validate:"required"`
	ExperienceYears int     `json:"experience_years" validate:"min=0"`
	Qualifications  *string `json:"qualifications"`
	Bio             *string `json:"bio"`
	HospitalID      *int64  `json:"hospital_id"`
	ConsultationFee float64 `json:"consultation_fee" validate:"min=0"`
	Availability    *string `json:"availability"`
}

// DoctorUpdate is a partial update of the doctor's own profile.
type DoctorUpdate struct {
	Phone           *string  `json:"phone"`
	Specialization  *string  `json:"specialization"`
	Qualifications  *string  `json:"qualifications"`
	Bio             *string  `json:"bio"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"omitempty,min=0"`
	Availability    *string  `json:"availability"`
	IsOnline        *bool    `json:"is_online"`
}

// DoctorQuery filters doctor lookups. Zero values are ignored.
type DoctorQuery struct {
	Status         DoctorStatus
	Name           string
	Specialization string
	HospitalID     int64
	MinExperience  int
	MaxFee         float64
}

// DoctorSearch is the public search body.
type DoctorSearch struct {
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	HospitalID     int64   `json:"hospital_id"`
	MinExperience  int     `json:"min_experience" validate:"min=0"`
	MaxFee         float64 `json:"max_fee" validate:"min=0"`
}

// TokenResponse is returned by POST /token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}
