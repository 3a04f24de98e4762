package gift

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidGift       = econerr.Validation("INVALID_GIFT", "Invalid gift")
	ErrInvalidReceiver   = econerr.Validation("INVALID_RECEIVER", "Invalid receiver")
	ErrInsufficientCoins = econerr.Business("INSUFFICIENT_COINS", "Insufficient coins")
	ErrRateLimited       = econerr.New(econerr.KindRateLimited, "RATE_LIMIT", "Too many gifts. Try again in a minute.")
)
