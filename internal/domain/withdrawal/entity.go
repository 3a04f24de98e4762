package withdrawal

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinWithdrawalInr is the smallest payout accepted.
	MinWithdrawalInr = 100

	Cooldown = 24 * time.Hour
)

// DiamondToInrRate converts held diamonds into the payout amount.
var DiamondToInrRate = decimal.RequireFromString("0.5")

var decimalMin = decimal.NewFromInt(MinWithdrawalInr)

// InrFor converts diamonds to rupees.
func InrFor(diamonds int64) decimal.Decimal {
	return decimal.NewFromInt(diamonds).Mul(DiamondToInrRate)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Request holds diamonds debited from the wallet until an admin resolves
// it. Rejection refunds them; approval makes the debit final.
type Request struct {
	RequestID   string          `json:"requestId"`
	UserID      string          `json:"userId"`
	Diamonds    int64           `json:"diamonds"`
	InrAmount   decimal.Decimal `json:"inrAmount"`
	Status      Status          `json:"status"`
	RequestedAt time.Time       `json:"requestedAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	AdminID     string          `json:"adminId,omitempty"`
	UpiID       string          `json:"upiId,omitempty"`
}

func (r Request) Validate() error {
	switch {
	case r.RequestID == "" || r.UserID == "":
		return errors.New("requestId and userId are required")
	case r.Diamonds <= 0:
		return errors.New("diamonds must be positive")
	case !r.InrAmount.Equal(InrFor(r.Diamonds)):
		return errors.New("inrAmount does not match diamonds")
	}
	switch r.Status {
	case StatusPending:
		return nil
	case StatusApproved, StatusRejected:
		if r.ProcessedAt == nil {
			return errors.New("processed request needs processedAt")
		}
		return nil
	}
	return errors.New("unknown status " + string(r.Status))
}
