package treasure

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidTransaction = econerr.Business("INVALID_TRANSACTION", "Invalid transaction")
	ErrAlreadyCounted     = econerr.Business("ALREADY_COUNTED", "Already counted")
	ErrInvalidAmount      = econerr.Validation("INVALID_AMOUNT", "Invalid amount")
)
