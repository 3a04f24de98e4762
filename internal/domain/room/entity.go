package room

import (
	"errors"
	"time"
)

// Room is the shared room record. The economy core reads the host and
// writes the treasure fields; VoiceMembers maps voice-channel uids to user
// ids for the speaking indicator.
type Room struct {
	RoomID     string    `json:"roomId"`
	HostUserID string    `json:"hostUserId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	TreasureProgress       int64            `json:"treasureProgress"`
	TreasureContributions  map[string]int64 `json:"treasureContributions"`
	TreasureThresholdIndex int              `json:"treasureThresholdIndex"`
	LastTreasureWinnerID   string           `json:"lastTreasureWinnerId,omitempty"`
	LastTreasureAt         *time.Time       `json:"lastTreasureAt,omitempty"`

	VoiceMembers map[string]string `json:"voiceMembers,omitempty"`
}

func (r Room) Validate() error {
	switch {
	case r.RoomID == "":
		return errors.New("roomId is required")
	case r.HostUserID == "":
		return errors.New("hostUserId is required")
	case r.TreasureProgress < 0:
		return errors.New("treasureProgress must not be negative")
	case r.TreasureThresholdIndex < 0 || r.TreasureThresholdIndex > 2:
		return errors.New("treasureThresholdIndex out of range")
	}
	for uid, amount := range r.TreasureContributions {
		if amount < 0 {
			return errors.New("negative contribution for " + uid)
		}
	}
	return nil
}
