package wallet

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidAmount       = econerr.Validation("INVALID_AMOUNT", "Invalid amount")
	ErrInvalidField        = econerr.Validation("INVALID_FIELD", "Invalid balance field")
	ErrInsufficientBalance = econerr.Business("INSUFFICIENT_BALANCE", "Insufficient balance")
	ErrWalletNotFound      = econerr.NotFound("WALLET_NOT_FOUND", "Wallet not found")
)
