package entity

import "time"

// RepeatType tells the scheduler on which calendar boundary a goal's
// completed flag is cleared again. Stored as a smallint.
type RepeatType int16

const (
	RepeatNever RepeatType = iota
	RepeatDaily
	RepeatWeekly
	RepeatMonthly
	RepeatYearly
)

func (rt RepeatType) Valid() bool {
	return rt >= RepeatNever && rt <= RepeatYearly
}

func (rt RepeatType) Display() string {
	switch rt {
	case RepeatNever:
		return "Never"
	case RepeatDaily:
		return "Daily At Midnight UTC"
	case RepeatWeekly:
		return "Weekly On Mondays At Midnight UTC"
	case RepeatMonthly:
		return "Monthly On The 1st At Midnight UTC"
	case RepeatYearly:
		return "Yearly On January 1st At Midnight UTC"
	}
	return "Unknown"
}

// User is the per-user points ledger row. ID is the platform user id.
// Both balances stay >= 0, enforced by the ledger service.
type User struct {
	ID          int64   `json:"id,string"`
	Points      float64 `json:"points"`
	SharePoints int     `json:"share_points"`
}

type Goal struct {
	ID         int         `json:"id"`
	UserID     int64       `json:"uid,string"`
	Text       string      `json:"text"`
	Reward     int         `json:"reward"`
	Completed  bool        `json:"completed"`
	Repeat     RepeatType  `json:"repeat"`
	ResetAt    *time.Time  `json:"reset_at,omitempty"`
	Created    time.Time   `json:"created"`
	Incentives []Incentive `json:"incentives"`
}

type Reward struct {
	ID        int       `json:"id"`
	UserID    int64     `json:"uid,string"`
	Text      string    `json:"text"`
	Cost      int       `json:"cost"`
	Renewable bool      `json:"renewable"`
	Deleted   bool      `json:"deleted"`
	Created   time.Time `json:"created"`
}

// Incentive is a third-party boost on someone else's goal. At most one per
// (goal, sender) pair; the service layer enforces that, not the schema.
type Incentive struct {
	GoalID int   `json:"goal"`
	Sender int64 `json:"sender,string"`
}
