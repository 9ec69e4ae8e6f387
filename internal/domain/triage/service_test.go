package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
)

type fakeDirectory struct {
	doctors []*identity.Doctor
}

func (f *fakeDirectory) ApprovedBySpecialization(_ context.Context, spec string, limit int) ([]*identity.Doctor, error) {
	var out []*identity.Doctor
	for _, d := range f.doctors {
		if d.Status != identity.DoctorApproved {
			continue
		}
		if !strings.Contains(strings.ToLower(d.Specialization), strings.ToLower(spec)) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

type fakeAnalyzer struct {
	res *Result
	err error
}

func (f *fakeAnalyzer) Analyze(context.Context, string) (*Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.res
	return &cp, nil
}

type mockCheckRepo struct {
	checks []*SymptomCheck
}

func (m *mockCheckRepo) Create(_ context.Context, sc *SymptomCheck) error {
	sc.CheckID = int64(len(m.checks) + 1)
	sc.CreatedAt = time.Now()
	m.checks = append(m.checks, sc)
	return nil
}

func (m *mockCheckRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]*SymptomCheck, int, error) {
	var out []*SymptomCheck
	for _, sc := range m.checks {
		if sc.UserID != nil && *sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out, len(out), nil
}

func directory() *fakeDirectory {
	return &fakeDirectory{doctors: []*identity.Doctor{
		{DoctorID: 1, Specialization: "Cardiologist", Status: identity.DoctorApproved},
		{DoctorID: 2, Specialization: "Interventional Cardiologist", Status: identity.DoctorApproved},
		{DoctorID: 3, Specialization: "Cardiologist", Status: identity.DoctorPending},
		{DoctorID: 4, Specialization: "cardiologist", Status: identity.DoctorApproved},
		{DoctorID: 5, Specialization: "Cardiologist", Status: identity.DoctorApproved},
		{DoctorID: 6, Specialization: "Dentist", Status: identity.DoctorApproved},
	}}
}

var errDown = errors.New("connection refused")

func TestAnalyze_FallbackWhenAIDown(t *testing.T) {
	svc := NewService(&fakeAnalyzer{err: errDown}, directory(), &mockCheckRepo{}, true, zerolog.Nop())

	res, err := svc.Analyze(context.Background(), "severe chest pain")
	require.NoError(t, err)
	assert.Equal(t, "Cardiologist", res.SuggestedSpecialization)
	assert.Equal(t, UrgencyHigh, res.Urgency)
	assert.Equal(t, []int64{1, 2, 4}, res.RecommendedDoctors)
}

func TestAnalyze_NoAIUsesRules(t *testing.T) {
	svc := NewService(nil, directory(), &mockCheckRepo{}, false, zerolog.Nop())

	res, err := svc.Analyze(context.Background(), "toothache")
	require.NoError(t, err)
	assert.Equal(t, "Dentist", res.SuggestedSpecialization)
	assert.Equal(t, []int64{6}, res.RecommendedDoctors)
}

func TestAnalyze_FallbackDisabled(t *testing.T) {
	svc := NewService(&fakeAnalyzer{err: errDown}, directory(), &mockCheckRepo{}, false, zerolog.Nop())

	_, err := svc.Analyze(context.Background(), "chest pain")
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))
	assert.Equal(t, 503, apperr.Status(err))
}

func TestAnalyze_FiltersAISuggestions(t *testing.T) {
	ai := &fakeAnalyzer{res: &Result{
		SuggestedSpecialization: "Cardiologist",
		Urgency:                 UrgencyMedium,
		RecommendedDoctors:      []int64{3, 6, 5, 99, 5, 4, 1},
	}}
	svc := NewService(ai, directory(), &mockCheckRepo{}, true, zerolog.Nop())

	res, err := svc.Analyze(context.Background(), "palpitations")
	require.NoError(t, err)
	// 3 is pending, 6 is a dentist, 99 does not exist, the duplicate 5 is dropped
	assert.Equal(t, []int64{5, 4, 1}, res.RecommendedDoctors)
}

func TestAnalyze_EmptySymptoms(t *testing.T) {
	svc := NewService(nil, directory(), &mockCheckRepo{}, true, zerolog.Nop())
	_, err := svc.Analyze(context.Background(), "   ")
	assert.True(t, errors.Is(err, apperr.ErrBadInput))
}

func TestCheck_StoresHistory(t *testing.T) {
	repo := &mockCheckRepo{}
	svc := NewService(nil, directory(), repo, true, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Check(ctx, 7, "mild rash")
	require.NoError(t, err)
	_, err = svc.Check(ctx, 8, "heart")
	require.NoError(t, err)

	items, total, err := svc.History(ctx, 7, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Dermatologist", items[0].SuggestedSpecialization)
	assert.Equal(t, UrgencyLow, items[0].Urgency)
	assert.Equal(t, "mild rash", items[0].Symptoms)
}
