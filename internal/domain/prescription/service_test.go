package prescription

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/notification"
)

type mockRepo struct {
	items  map[int64]*Prescription
	nextID int64
}

func newMockRepo() *mockRepo { return &mockRepo{items: make(map[int64]*Prescription)} }

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	for _, existing := range m.items {
		if existing.AppointmentID == p.AppointmentID {
			return apperr.Conflict("Prescription already exists for this appointment")
		}
	}
	m.nextID++
	p.PrescriptionID = m.nextID
	p.CreatedAt = time.Now()
	m.items[p.PrescriptionID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, errPrescriptionNotFound
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, q Query, limit, offset int) ([]*Prescription, int, error) {
	var out []*Prescription
	for id := int64(1); id <= m.nextID; id++ {
		p, ok := m.items[id]
		if !ok {
			continue
		}
		if q.UserID != 0 && p.UserID != q.UserID {
			continue
		}
		if q.DoctorID != 0 && p.DoctorID != q.DoctorID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type fakeAppointments map[int64]*appointment.Appointment

func (f fakeAppointments) Find(_ context.Context, id int64) (*appointment.Appointment, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, apperr.NotFound("Appointment not found")
}

type fakeDirectory struct{}

func (fakeDirectory) GetUser(_ context.Context, id int64) (*identity.User, error) {
	phone := "+91100"
	return &identity.User{UserID: id, Name: "Asha", Email: "asha@example.com", Phone: &phone}, nil
}

func (fakeDirectory) GetDoctor(_ context.Context, id int64) (*identity.Doctor, error) {
	return &identity.Doctor{DoctorID: id, Name: "Rao", Specialization: "Cardiologist", LicenseNumber: "KA-1"}, nil
}

func i64(v int64) *int64 { return &v }

var (
	assigned = &identity.Doctor{DoctorID: 10, Name: "Rao"}
	stranger = &identity.Doctor{DoctorID: 11, Name: "Sen"}
)

func newTestService(rec *notification.Recorder) (*Service, *mockRepo) {
	repo := newMockRepo()
	appts := fakeAppointments{
		1: {AppointmentID: 1, UserID: 5, DoctorID: i64(10)},
		2: {AppointmentID: 2, UserID: 6},
	}
	svc := NewService(repo, appts, fakeDirectory{}, notification.NewRecordingDispatcher(rec), nil, zerolog.Nop())
	return svc, repo
}

func validRequest() CreateRequest {
	return CreateRequest{
		AppointmentID: 1,
		Diagnosis:     "Hypertension",
		Medications: []Medication{
			{Name: "Amlodipine", Dosage: "5mg", Frequency: "once daily", Duration: "30 days"},
		},
	}
}

func TestCreate(t *testing.T) {
	rec := &notification.Recorder{}
	svc, _ := newTestService(rec)

	follow := "2026-04-01"
	req := validRequest()
	req.FollowUpDate = &follow

	p, err := svc.Create(context.Background(), assigned, req)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.UserID)
	assert.Equal(t, int64(10), p.DoctorID)
	require.NotNil(t, p.FollowUpDate)
	assert.Equal(t, "2026-04-01", p.FollowUpDate.Format("2006-01-02"))

	msgs := rec.Messages()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Empty(t, m.Attachments, "no attachment unless enabled")
		if m.Channel == notification.ChannelPush {
			assert.Equal(t, p.PrescriptionID, m.Data["prescription_id"])
		}
	}
}

func TestCreate_Errors(t *testing.T) {
	svc, _ := newTestService(&notification.Recorder{})
	ctx := context.Background()

	_, err := svc.Create(ctx, stranger, validRequest())
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.Equal(t, "Not authorized to create prescription for this appointment", err.Error())

	req := validRequest()
	req.AppointmentID = 2 // no doctor assigned
	_, err = svc.Create(ctx, assigned, req)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	req = validRequest()
	req.AppointmentID = 99
	_, err = svc.Create(ctx, assigned, req)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	req = validRequest()
	req.Medications = nil
	_, err = svc.Create(ctx, assigned, req)
	assert.True(t, errors.Is(err, apperr.ErrBadInput))

	req = validRequest()
	req.Medications[0].Dosage = " "
	_, err = svc.Create(ctx, assigned, req)
	assert.True(t, errors.Is(err, apperr.ErrBadInput))

	bad := "next week"
	req = validRequest()
	req.FollowUpDate = &bad
	_, err = svc.Create(ctx, assigned, req)
	assert.True(t, errors.Is(err, apperr.ErrBadInput))
}

func TestCreate_OnePerAppointment(t *testing.T) {
	svc, _ := newTestService(&notification.Recorder{})
	ctx := context.Background()

	_, err := svc.Create(ctx, assigned, validRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, assigned, validRequest())
	assert.Equal(t, http.StatusConflict, apperr.Status(err))
}

func TestCreate_AttachesPDF(t *testing.T) {
	rec := &notification.Recorder{}
	svc, _ := newTestService(rec)
	svc.WithPDFAttachments(true)

	p, err := svc.Create(context.Background(), assigned, validRequest())
	require.NoError(t, err)

	var email *notification.Message
	for _, m := range rec.Messages() {
		if m.Channel == notification.ChannelEmail {
			m := m
			email = &m
		}
	}
	require.NotNil(t, email)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "prescription_1.pdf", email.Attachments[0].Name)
	assert.True(t, bytes.HasPrefix(email.Attachments[0].Content, []byte("%PDF")))
	assert.Equal(t, int64(1), p.PrescriptionID)
}

func TestGetAndList_Scoped(t *testing.T) {
	svc, _ := newTestService(&notification.Recorder{})
	ctx := context.Background()
	p, err := svc.Create(ctx, assigned, validRequest())
	require.NoError(t, err)

	patient := identity.UserPrincipal{User: &identity.User{UserID: 5}}
	otherPatient := identity.UserPrincipal{User: &identity.User{UserID: 6}}
	admin := identity.AdminPrincipal{Admin: &identity.Admin{AdminID: 1}}

	for _, pr := range []identity.Principal{patient, identity.DoctorPrincipal{Doctor: assigned}, admin} {
		_, err := svc.Get(ctx, pr, p.PrescriptionID)
		assert.NoError(t, err, "%s should read it", pr.Kind())
	}
	_, err = svc.Get(ctx, otherPatient, p.PrescriptionID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	_, err = svc.Get(ctx, identity.DoctorPrincipal{Doctor: stranger}, p.PrescriptionID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	_, err = svc.Get(ctx, admin, 42)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, total, _ := svc.List(ctx, patient, 10, 0)
	assert.Equal(t, 1, total)
	_, total, _ = svc.List(ctx, otherPatient, 10, 0)
	assert.Equal(t, 0, total)
	_, total, _ = svc.List(ctx, identity.DoctorPrincipal{Doctor: stranger}, 10, 0)
	assert.Equal(t, 0, total)
	_, total, _ = svc.List(ctx, admin, 10, 0)
	assert.Equal(t, 1, total)
}

func TestRenderPDF(t *testing.T) {
	instructions := "Take after food."
	follow := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	out, err := RenderPDF(Document{
		Prescription: &Prescription{
			PrescriptionID: 3, AppointmentID: 1, Diagnosis: "Flu",
			Medications: []Medication{{Name: "Paracetamol", Dosage: "500mg", Frequency: "tid", Duration: "3 days"}},
			Instructions: &instructions, FollowUpDate: &follow, CreatedAt: time.Now(),
		},
		PatientName: "Asha",
		DoctorName:  "Rao",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestHandler_Download(t *testing.T) {
	svc, _ := newTestService(&notification.Recorder{})
	_, err := svc.Create(context.Background(), assigned, validRequest())
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/prescriptions/1/pdf", nil)
	req = req.WithContext(identity.WithPrincipal(req.Context(), identity.UserPrincipal{User: &identity.User{UserID: 5}}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, NewHandler(svc).Download(c))
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "prescription_1.pdf"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandler_Create_RequiresDoctor(t *testing.T) {
	svc, _ := newTestService(&notification.Recorder{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/prescriptions", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(identity.WithPrincipal(req.Context(), identity.UserPrincipal{User: &identity.User{UserID: 5}}))
	c := e.NewContext(req, httptest.NewRecorder())

	he, ok := NewHandler(svc).Create(c).(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Code)
}
