package withdrawal

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrBelowMinimum        = econerr.Validation("BELOW_MINIMUM", "Minimum withdrawal is ₹100")
	ErrInvalidAction       = econerr.Validation("INVALID_ACTION", "Invalid action")
	ErrCooldown            = econerr.Business("COOLDOWN", "Please wait 24 hours between withdrawals")
	ErrInsufficientDiamond = econerr.Business("INSUFFICIENT_DIAMONDS", "Insufficient diamonds")
	ErrRequestNotFound     = econerr.Business("REQUEST_NOT_FOUND", "Request not found or already processed")
	ErrExportUnavailable   = econerr.External("EXPORT_UNAVAILABLE", "Payout export storage is not configured")
)
