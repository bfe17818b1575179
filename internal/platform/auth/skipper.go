package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass authentication: the credential
// endpoints themselves and the health checks.
var publicPaths = map[string]bool{
	"/health/":                 true,
	"/health/db/":              true,
	"/api/auth/register/":      true,
	"/api/auth/login/":         true,
	"/api/auth/token/refresh/": true,
}

// AuthSkipper returns true for requests whose matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
