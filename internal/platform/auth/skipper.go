package auth

import (
	"github.com/labstack/echo/v4"
)

// publicRoutes lists the routes reachable without a bearer token, keyed by
// method and registered path. The incoming-call route is called by the voice
// provider's webhook.
var publicRoutes = map[string]bool{
	"GET /":                         true,
	"GET /health":                   true,
	"GET /health/db":                true,
	"POST /token":                   true,
	"POST /users":                   true,
	"POST /doctors":                 true,
	"GET /doctors":                  true,
	"GET /doctors/:id":              true,
	"POST /doctors/search":          true,
	"GET /hospitals":                true,
	"GET /hospitals/:id":            true,
	"POST /hospitals/search":        true,
	"POST /telephony/incoming-call": true,
	"GET /uploads/:filename":        true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

// IsPublicRoute reports whether method and route path bypass authentication.
func IsPublicRoute(method, path string) bool {
	return publicRoutes[method+" "+path]
}
