package hospital

import (
	"context"
	"fmt"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a hospital awaiting admin review.
func (s *Service) Create(ctx context.Context, req HospitalCreate) (*Hospital, error) {
	if req.Name == "" || req.Address == "" || req.ContactNumber == "" {
		return nil, apperr.BadInput("name, address and contact_number are required")
	}
	h := &Hospital{
		Name:          req.Name,
		Address:       req.Address,
		LocationLat:   req.LocationLat,
		LocationLong:  req.LocationLong,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Website:       req.Website,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListApproved(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.Search(ctx, Query{Status: StatusApproved}, limit, offset)
}

func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.Search(ctx, Query{Status: StatusPending}, limit, offset)
}

// Search matches approved hospitals by name and by location text in the address.
func (s *Service) Search(ctx context.Context, req HospitalSearch, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.Search(ctx, Query{Status: StatusApproved, Name: req.Name, Location: req.Location}, limit, offset)
}

// SetStatus moves a PENDING hospital to APPROVED or REJECTED.
func (s *Service) SetStatus(ctx context.Context, id int64, to Status) (*Hospital, error) {
	if to != StatusApproved && to != StatusRejected {
		return nil, apperr.BadInput(fmt.Sprintf("invalid hospital status %s", to))
	}
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Status != StatusPending {
		return nil, apperr.BadInput(fmt.Sprintf("cannot change hospital status from %s to %s", h.Status, to))
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	h.Status = to
	return h, nil
}
