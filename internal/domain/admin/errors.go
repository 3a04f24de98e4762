package admin

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidPassword   = econerr.New(econerr.KindUnauthenticated, "INVALID_PASSWORD", "Invalid password")
	ErrTooManyAttempts   = econerr.New(econerr.KindRateLimited, "TOO_MANY_ATTEMPTS", "Too many attempts. Try again later.")
	ErrGateNotConfigured = econerr.External("ADMIN_NOT_CONFIGURED", "Admin access is not configured")
	ErrUserNotFound      = econerr.NotFound("USER_NOT_FOUND", "User not found")
)
