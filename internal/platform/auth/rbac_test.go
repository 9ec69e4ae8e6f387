package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRBAC(t *testing.T, claims *Claims, roles ...Role) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if claims != nil {
		req = req.WithContext(WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := RequireRole(roles...)(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestRequireRole_Allowed(t *testing.T) {
	called, err := runRBAC(t, &Claims{Email: "d@example.com", Role: RoleDoctor}, RoleDoctor, RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	called, err := runRBAC(t, &Claims{Email: "u@example.com", Role: RoleUser}, RoleDoctor, RoleAdmin)
	if called {
		t.Error("handler must not run for a forbidden role")
	}
	expectStatus(t, err, http.StatusForbidden)
	if msg := err.(*echo.HTTPError).Message; msg != "required role: DOCTOR or ADMIN" {
		t.Errorf("unexpected message: %v", msg)
	}
}

func TestRequireRole_AdminIsNotImplicit(t *testing.T) {
	_, err := runRBAC(t, &Claims{Email: "a@example.com", Role: RoleAdmin}, RoleUser)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NoClaims(t *testing.T) {
	_, err := runRBAC(t, nil, RoleUser)
	expectStatus(t, err, http.StatusUnauthorized)
}
