package identity

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

// Principal is the resolved caller of a request. The set of implementations
// is closed: UserPrincipal, DoctorPrincipal and AdminPrincipal.
type Principal interface {
	Kind() auth.Role
	Email() string
	principal()
}

type UserPrincipal struct{ User *User }

type DoctorPrincipal struct{ Doctor *Doctor }

type AdminPrincipal struct{ Admin *Admin }

func (UserPrincipal) Kind() auth.Role   { return auth.RoleUser }
func (DoctorPrincipal) Kind() auth.Role { return auth.RoleDoctor }
func (AdminPrincipal) Kind() auth.Role  { return auth.RoleAdmin }

func (p UserPrincipal) Email() string   { return p.User.Email }
func (p DoctorPrincipal) Email() string { return p.Doctor.Email }
func (p AdminPrincipal) Email() string  { return p.Admin.Email }

func (UserPrincipal) principal()   {}
func (DoctorPrincipal) principal() {}
func (AdminPrincipal) principal()  {}

// Profile returns the identity row behind p.
func Profile(p Principal) interface{} {
	switch v := p.(type) {
	case UserPrincipal:
		return v.User
	case DoctorPrincipal:
		return v.Doctor
	case AdminPrincipal:
		return v.Admin
	default:
		return nil
	}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// CurrentPrincipal returns the caller of c or a 401 error when the request is
// unauthenticated.
func CurrentPrincipal(c echo.Context) (Principal, error) {
	p := PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
	}
	return p, nil
}

// Resolver maps verified token claims to a Principal.
type Resolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (Principal, error)
}

// PrincipalMiddleware re-fetches the identity named by the token claims from
// the table matching the role. Requests without claims pass through untouched.
func PrincipalMiddleware(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			claims := auth.ClaimsFromContext(ctx)
			if claims == nil {
				return next(c)
			}
			p, err := r.Resolve(ctx, claims)
			if err != nil {
				return apperr.HTTP(err)
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}
