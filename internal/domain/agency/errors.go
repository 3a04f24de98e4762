package agency

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidCode     = econerr.Validation("INVALID_CODE", "Invalid code")
	ErrInvalidRole     = econerr.Validation("INVALID_ROLE", "Invalid role")
	ErrAgencyNotFound  = econerr.Business("AGENCY_NOT_FOUND", "Create agency first")
	ErrTargetNotFound  = econerr.NotFound("AGENCY_NOT_FOUND", "Agency not found")
	ErrAlreadyBound    = econerr.Business("ALREADY_BOUND", "Already bound to an inviter")
	ErrUnknownCode     = econerr.Business("INVALID_CODE", "Invalid or your own code")
	ErrDownlineCode    = econerr.Business("HIERARCHY_CYCLE", "Cannot bind to someone in your own team")
	ErrCodeUnavailable = econerr.New(econerr.KindConflict, "CODE_UNAVAILABLE", "Could not allocate an agency code. Please try again.")
	ErrAdminOnly       = econerr.ErrAdminOnly
	ErrInvalidOrderID  = econerr.Validation("INVALID_ORDER", "Invalid order")
	ErrInvalidRecharge = econerr.Validation("INVALID_AMOUNT", "Invalid amount")
)
