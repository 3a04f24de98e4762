package contest

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrNotHost            = econerr.Authorization("NOT_HOST", "Not the host")
	ErrAlreadyDistributed = econerr.Business("ALREADY_DISTRIBUTED", "Rewards already distributed for this week")
	ErrInvalidWeek        = econerr.Validation("INVALID_WEEK", "Invalid week. Use the form 2026-W07")
)
