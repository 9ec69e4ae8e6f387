package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

var errBadLogin = apperr.Unauthorized("Incorrect username or password")

type Service struct {
	users       UserRepository
	doctors     DoctorRepository
	admins      AdminRepository
	issuer      *auth.TokenIssuer
	revocations auth.RevocationStore
}

func NewService(users UserRepository, doctors DoctorRepository, admins AdminRepository,
	issuer *auth.TokenIssuer, revocations auth.RevocationStore) *Service {
	return &Service{users: users, doctors: doctors, admins: admins, issuer: issuer, revocations: revocations}
}

// -- Credentials --

// Login checks the users, doctors and admins tables in that order and issues
// a token for the first identity whose password matches.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	if email == "" || password == "" {
		return nil, errBadLogin
	}
	role, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.issuer.Issue(email, role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer", Role: string(role), ExpiresAt: exp}, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (auth.Role, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	if u != nil && auth.CheckPassword(u.PasswordHash, password) {
		return auth.RoleUser, nil
	}

	d, err := s.doctors.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	if d != nil && auth.CheckPassword(d.PasswordHash, password) {
		return auth.RoleDoctor, nil
	}

	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	if a != nil && auth.CheckPassword(a.PasswordHash, password) {
		return auth.RoleAdmin, nil
	}
	return "", errBadLogin
}

// Logout revokes the token described by claims until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if claims.ExpiresAt == nil {
		return apperr.BadInput("token has no expiry")
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Resolve re-fetches the identity named by claims from the table matching
// its role. A missing row is a not-found error, not an authentication error.
func (s *Service) Resolve(ctx context.Context, claims *auth.Claims) (Principal, error) {
	switch claims.Role {
	case auth.RoleUser:
		u, err := s.users.GetByEmail(ctx, claims.Email)
		if err != nil {
			return nil, err
		}
		return UserPrincipal{User: u}, nil
	case auth.RoleDoctor:
		d, err := s.doctors.GetByEmail(ctx, claims.Email)
		if err != nil {
			return nil, err
		}
		return DoctorPrincipal{Doctor: d}, nil
	case auth.RoleAdmin:
		a, err := s.admins.GetByEmail(ctx, claims.Email)
		if err != nil {
			return nil, err
		}
		return AdminPrincipal{Admin: a}, nil
	default:
		return nil, apperr.Unauthorized("could not validate credentials")
	}
}

// -- Users --

func (s *Service) RegisterUser(ctx context.Context, req UserCreate) (*User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.BadInput("name is required")
	}
	if req.Email == "" || req.Password == "" {
		return nil, apperr.BadInput("email and password are required")
	}
	if err := checkDemographics(req.Age, req.Gender); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}
	if req.Phone != nil && *req.Phone != "" {
		if existing, err := s.users.GetByPhone(ctx, *req.Phone); err == nil && existing != nil {
			return nil, apperr.BadInput("Phone already registered")
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Age:          req.Age,
		Gender:       req.Gender,
		Location:     req.Location,
		Address:      req.Address,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkEmailFree looks the email up in all three identity tables. A token's
// email must resolve to exactly one of them.
func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	if u, err := s.users.GetByEmail(ctx, email); err == nil && u != nil {
		return apperr.BadInput("Email already registered")
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if d, err := s.doctors.GetByEmail(ctx, email); err == nil && d != nil {
		return apperr.BadInput("Email already registered")
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if a, err := s.admins.GetByEmail(ctx, email); err == nil && a != nil {
		return apperr.BadInput("Email already registered")
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

func checkDemographics(age *int, gender *Gender) error {
	if age != nil && (*age < 0 || *age > 150) {
		return apperr.BadInput("age must be between 0 and 150")
	}
	if gender != nil && !gender.Valid() {
		return apperr.BadInput(fmt.Sprintf("invalid gender: %s", *gender))
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) FindUserByPhone(ctx context.Context, phone string) (*User, error) {
	return s.users.GetByPhone(ctx, phone)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) UpdateUser(ctx context.Context, u *User, req UserUpdate) (*User, error) {
	if err := checkDemographics(req.Age, req.Gender); err != nil {
		return nil, err
	}
	updated := *u
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperr.BadInput("name cannot be empty")
		}
		updated.Name = *req.Name
	}
	if req.Phone != nil {
		updated.Phone = req.Phone
	}
	if req.Age != nil {
		updated.Age = req.Age
	}
	if req.Gender != nil {
		updated.Gender = req.Gender
	}
	if req.Location != nil {
		updated.Location = req.Location
	}
	if req.Address != nil {
		updated.Address = req.Address
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// -- Doctors --

func (s *Service) RegisterDoctor(ctx context.Context, req DoctorCreate) (*Doctor, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.BadInput("name is required")
	}
	if req.Email == "" || req.Password == "" {
		return nil, apperr.BadInput("email and password are required")
	}
	if req.Specialization == "" || req.LicenseNumber == "" {
		return nil, apperr.BadInput("specialization and license_number are required")
	}
	if req.ExperienceYears < 0 || req.ConsultationFee < 0 {
		return nil, apperr.BadInput("experience_years and consultation_fee cannot be negative")
	}
	if err := s.checkEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	d := &Doctor{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		PasswordHash:    hash,
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.ExperienceYears,
		Qualifications:  req.Qualifications,
		Bio:             req.Bio,
		Status:          DoctorPending,
		HospitalID:      req.HospitalID,
		ConsultationFee: req.ConsultationFee,
		Availability:    req.Availability,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListApprovedDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, DoctorQuery{Status: DoctorApproved}, limit, offset)
}

func (s *Service) ListPendingDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, DoctorQuery{Status: DoctorPending}, limit, offset)
}

// SearchDoctors runs the public search. Only approved doctors are returned.
func (s *Service) SearchDoctors(ctx context.Context, req DoctorSearch, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, DoctorQuery{
		Status:         DoctorApproved,
		Name:           req.Name,
		Specialization: req.Specialization,
		HospitalID:     req.HospitalID,
		MinExperience:  req.MinExperience,
		MaxFee:         req.MaxFee,
	}, limit, offset)
}

// ApprovedBySpecialization returns up to limit approved doctors whose
// specialization contains spec, case-insensitively.
func (s *Service) ApprovedBySpecialization(ctx context.Context, spec string, limit int) ([]*Doctor, error) {
	items, _, err := s.doctors.Search(ctx, DoctorQuery{Status: DoctorApproved, Specialization: spec}, limit, 0)
	return items, err
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor, req DoctorUpdate) (*Doctor, error) {
	updated := *d
	if req.Phone != nil {
		updated.Phone = req.Phone
	}
	if req.Specialization != nil {
		if strings.TrimSpace(*req.Specialization) == "" {
			return nil, apperr.BadInput("specialization cannot be empty")
		}
		updated.Specialization = *req.Specialization
	}
	if req.Qualifications != nil {
		updated.Qualifications = req.Qualifications
	}
	if req.Bio != nil {
		updated.Bio = req.Bio
	}
	if req.ConsultationFee != nil {
		if *req.ConsultationFee < 0 {
			return nil, apperr.BadInput("consultation_fee cannot be negative")
		}
		updated.ConsultationFee = *req.ConsultationFee
	}
	if req.Availability != nil {
		updated.Availability = req.Availability
	}
	if req.IsOnline != nil {
		updated.IsOnline = *req.IsOnline
	}
	if err := s.doctors.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// -- Moderation --

var doctorTransitions = map[DoctorStatus][]DoctorStatus{
	DoctorPending:   {DoctorApproved, DoctorRejected},
	DoctorApproved:  {DoctorSuspended},
	DoctorSuspended: {DoctorApproved},
}

func canMoveDoctor(from, to DoctorStatus) bool {
	for _, next := range doctorTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetDoctorStatus moves a doctor through the moderation states.
func (s *Service) SetDoctorStatus(ctx context.Context, id int64, to DoctorStatus) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMoveDoctor(d.Status, to) {
		return nil, apperr.BadInput(fmt.Sprintf("cannot change doctor status from %s to %s", d.Status, to))
	}
	if err := s.doctors.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	d.Status = to
	return d, nil
}

// -- Admins --

// CreateAdmin is used by the seed command; there is no HTTP route for it.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*Admin, error) {
	if email == "" || password == "" {
		return nil, apperr.BadInput("admin email and password are required")
	}
	if err := s.checkEmailFree(ctx, email); errors.Is(err, apperr.ErrBadInput) {
		return nil, apperr.Conflict(err.Error())
	} else if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Admin{Name: name, Email: email, PasswordHash: hash}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
