package triage

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
)

// MaxRecommended caps the doctors suggested for one analysis.
const MaxRecommended = 3

// candidatePool bounds how many approved doctors are considered when
// checking AI-suggested ids.
const candidatePool = 100

// DoctorFinder looks up approved doctors by specialization.
type DoctorFinder interface {
	ApprovedBySpecialization(ctx context.Context, spec string, limit int) ([]*identity.Doctor, error)
}

type Service struct {
	ai       Analyzer
	doctors  DoctorFinder
	checks   Repository
	fallback bool
	logger   zerolog.Logger
}

// NewService wires the analyzer chain. ai may be nil, in which case the
// keyword rules are always used.
func NewService(ai Analyzer, doctors DoctorFinder, checks Repository, fallback bool, logger zerolog.Logger) *Service {
	return &Service{ai: ai, doctors: doctors, checks: checks, fallback: fallback, logger: logger}
}

// Analyze tries the AI service first and falls back to the keyword rules
// when it cannot be reached. With the fallback disabled an unreachable
// service is reported as unavailable.
func (s *Service) Analyze(ctx context.Context, symptoms string) (*Result, error) {
	if strings.TrimSpace(symptoms) == "" {
		return nil, apperr.BadInput("symptoms are required")
	}

	if s.ai != nil {
		res, err := s.ai.Analyze(ctx, symptoms)
		if err == nil {
			ids, err := s.filterSuggested(ctx, res.SuggestedSpecialization, res.RecommendedDoctors)
			if err != nil {
				return nil, err
			}
			res.RecommendedDoctors = ids
			return res, nil
		}
		if !s.fallback {
			s.logger.Error().Err(err).Msg("AI service unavailable and fallback disabled")
			return nil, apperr.Unavailable("AI service unavailable")
		}
		s.logger.Warn().Err(err).Msg("AI service failed, using keyword fallback")
	}

	res := Classify(symptoms)
	ids, err := s.recommend(ctx, res.SuggestedSpecialization)
	if err != nil {
		return nil, err
	}
	res.RecommendedDoctors = ids
	return &res, nil
}

func (s *Service) recommend(ctx context.Context, spec string) ([]int64, error) {
	doctors, err := s.doctors.ApprovedBySpecialization(ctx, spec, MaxRecommended)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.DoctorID)
	}
	return ids, nil
}

// filterSuggested keeps AI-suggested ids that belong to approved doctors of
// the suggested specialization.
func (s *Service) filterSuggested(ctx context.Context, spec string, suggested []int64) ([]int64, error) {
	if len(suggested) == 0 {
		return []int64{}, nil
	}
	doctors, err := s.doctors.ApprovedBySpecialization(ctx, spec, candidatePool)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]bool, len(doctors))
	for _, d := range doctors {
		allowed[d.DoctorID] = true
	}
	ids := make([]int64, 0, MaxRecommended)
	for _, id := range suggested {
		if allowed[id] && len(ids) < MaxRecommended {
			ids = append(ids, id)
			delete(allowed, id)
		}
	}
	return ids, nil
}

// Check analyses symptoms for a patient and stores the outcome.
func (s *Service) Check(ctx context.Context, userID int64, symptoms string) (*Result, error) {
	res, err := s.Analyze(ctx, symptoms)
	if err != nil {
		return nil, err
	}
	sc := &SymptomCheck{
		UserID:                  &userID,
		Symptoms:                symptoms,
		SuggestedSpecialization: res.SuggestedSpecialization,
		Urgency:                 res.Urgency,
		RecommendedDoctors:      res.RecommendedDoctors,
	}
	if err := s.checks.Create(ctx, sc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]*SymptomCheck, int, error) {
	return s.checks.ListByUser(ctx, userID, limit, offset)
}
