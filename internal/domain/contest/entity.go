package contest

import (
	"errors"
	"fmt"
	"time"
)

// Rewards is the diamond prize per rank, best first.
var Rewards = []int64{500, 300, 200, 100, 100, 50, 50, 50, 50, 50}

// WeekKey formats t's ISO week as 2026-W07.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// HostActivity counts a host's live minutes in one ISO week.
type HostActivity struct {
	UserID    string    `json:"userId"`
	WeekKey   string    `json:"weekKey"`
	Minutes   int64     `json:"minutes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a HostActivity) Validate() error {
	switch {
	case a.UserID == "" || a.WeekKey == "":
		return errors.New("userId and weekKey are required")
	case a.Minutes < 0:
		return errors.New("minutes must not be negative")
	}
	return nil
}

type Winner struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Minutes  int64  `json:"minutes"`
	Diamonds int64  `json:"diamonds"`
}

// Distribution marks a week as paid.
type Distribution struct {
	WeekKey       string    `json:"weekKey"`
	DistributedAt time.Time `json:"distributedAt"`
	AdminID       string    `json:"adminId"`
	WinnerCount   int       `json:"winnerCount"`
	Winners       []Winner  `json:"winners"`
}

func (d Distribution) Validate() error {
	if d.WeekKey == "" {
		return errors.New("weekKey is required")
	}
	if d.WinnerCount != len(d.Winners) {
		return errors.New("winnerCount does not match winners")
	}
	return nil
}
