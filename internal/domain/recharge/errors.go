package recharge

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrInvalidPack      = econerr.Validation("INVALID_PACK", "Invalid pack. Choose a valid amount.")
	ErrInvalidSignature = econerr.Validation("INVALID_SIGNATURE", "Invalid signature")
	ErrOrderNotFound    = econerr.NotFound("ORDER_NOT_FOUND", "Order not found")
	ErrReplay           = econerr.Business("REPLAY", "Payment already processed")
	ErrNotConfigured    = econerr.External("PAYMENTS_NOT_CONFIGURED", "Payments not configured")
	ErrGateway          = econerr.External("GATEWAY_ERROR", "Payment service unavailable. Please try again.")
)
