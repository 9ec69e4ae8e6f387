package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   *int   `json:"age" validate:"omitempty,min=0,max=150"`
}

func TestValidator_ReportsFields(t *testing.T) {
	v := NewValidator()
	age := 200
	err := v.Validate(&sampleRequest{Email: "not-an-email", Age: &age})
	if !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"Name: required", "Email: email", "Age: max=150"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidator_Valid(t *testing.T) {
	if err := NewValidator().Validate(&sampleRequest{Name: "Asha", Email: "asha@example.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"","email":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body sampleRequest
	err := BindAndValidate(c, &body)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{bad json`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	if err := BindAndValidate(c, &body); err == nil {
		t.Error("expected bind error for malformed JSON")
	}
}
