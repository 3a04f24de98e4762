package admin

import (
	"errors"
	"time"

	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/gift"
	"github.com/voxroom/voxroom-api/internal/domain/recharge"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
)

// Audit actions
const (
	ActionGrant       = "admin.grant"
	ActionGrantDenied = "admin.grant_denied"
	ActionSetRole     = "agency.set_role"
	ActionWithdrawals = "withdrawals"
	ActionContest     = "contest"
)

// AuditLog records one administrative action.
type AuditLog struct {
	ID         string    `json:"id"`
	AdminID    string    `json:"adminId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (a AuditLog) Validate() error {
	if a.ID == "" || a.AdminID == "" || a.Action == "" {
		return errors.New("id, adminId and action are required")
	}
	return nil
}

// UserView is everything an operator sees about one user.
type UserView struct {
	UserID   string         `json:"userId"`
	Wallet   *wallet.Wallet `json:"wallet,omitempty"`
	Agency   *agency.Node   `json:"agency,omitempty"`
	VipLevel int            `json:"vipLevel"`
}

// Catalog lists what users can buy and send.
type Catalog struct {
	Gifts []gift.Gift     `json:"gifts"`
	Packs []recharge.Pack `json:"packs"`
}
