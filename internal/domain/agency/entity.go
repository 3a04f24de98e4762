package agency

import (
	"errors"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type Role string

const (
	RoleBD             Role = "BD"
	RoleAdmin          Role = "Admin"
	RoleSuperAdmin     Role = "Super Admin"
	RoleCountryManager Role = "Country Manager"
	RoleChiefOfficial  Role = "Chief Official"

	DefaultRole = RoleBD
)

var roles = []Role{RoleBD, RoleAdmin, RoleSuperAdmin, RoleCountryManager, RoleChiefOfficial}

// IsValid reports whether r is one of the fixed hierarchy roles.
func (r Role) IsValid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// CanAssignRoles reports whether a node with this role may change others'.
func (r Role) CanAssignRoles() bool {
	return r == RoleChiefOfficial
}

// Node is a user's place in the referral hierarchy. ParentUserID is empty
// until the one-time bind.
type Node struct {
	UserID            string     `json:"userId"`
	Role              Role       `json:"role"`
	AgencyCode        string     `json:"agencyCode"`
	ParentUserID      string     `json:"parentUserId,omitempty"`
	BoundAt           *time.Time `json:"boundAt,omitempty"`
	CommissionBalance int64      `json:"commissionBalance"`
	TeamEarnings      int64      `json:"teamEarnings"`
	TotalWithdrawn    int64      `json:"totalWithdrawn"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (n Node) Validate() error {
	switch {
	case n.UserID == "":
		return errors.New("userId is required")
	case !n.Role.IsValid():
		return errors.New("unknown role " + string(n.Role))
	case n.AgencyCode == "":
		return errors.New("agencyCode is required")
	case n.CommissionBalance < 0 || n.TeamEarnings < 0 || n.TotalWithdrawn < 0:
		return errors.New("balances must not be negative")
	case n.ParentUserID == n.UserID:
		return errors.New("node cannot be its own parent")
	}
	return nil
}

// CodeEntry resolves an invitation code to its owner.
type CodeEntry struct {
	Code      string    `json:"code"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c CodeEntry) Validate() error {
	if c.Code == "" || c.UserID == "" {
		return errors.New("code and userId are required")
	}
	return nil
}

const SourceRecharge = "recharge"

// CommissionRecord is the append-only audit of one commission credit.
type CommissionRecord struct {
	ParentUserID     string    `json:"parentUserId"`
	FromUserID       string    `json:"fromUserId"`
	OrderID          string    `json:"orderId"`
	Level            int       `json:"level"`
	Amount           int64     `json:"amount"`
	CommissionAmount int64     `json:"commissionAmount"`
	Source           string    `json:"source"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (c CommissionRecord) Validate() error {
	switch {
	case c.ParentUserID == "" || c.FromUserID == "" || c.OrderID == "":
		return errors.New("parentUserId, fromUserId and orderId are required")
	case c.Level < 1:
		return errors.New("level must be positive")
	case c.CommissionAmount <= 0:
		return errors.New("commissionAmount must be positive")
	case c.Source != SourceRecharge:
		return errors.New("unknown source " + c.Source)
	}
	return nil
}

func nodeKey(userID string) ledger.Key {
	return ledger.K(ledger.AgencyNodes, userID)
}

func codeKey(code string) ledger.Key {
	return ledger.K(ledger.AgencyCodes, code)
}
