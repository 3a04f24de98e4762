package user

import (
	"errors"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// Profile is the economy's view of a user account. Identity lives with the
// external auth provider; only denormalized fields the clients display are
// kept here.
type Profile struct {
	UserID    string    `json:"userId"`
	VipLevel  int       `json:"vipLevel"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Profile) Validate() error {
	if p.UserID == "" {
		return errors.New("userId is required")
	}
	if p.VipLevel < 0 {
		return errors.New("vipLevel must not be negative")
	}
	return nil
}

func key(userID string) ledger.Key {
	return ledger.K(ledger.Users, userID)
}
