package types

import "time"

// GoalState is the per-app streak state machine position.
type GoalState int

const (
	GoalStateNone GoalState = iota
	GoalStateActive
	GoalStateBrokenPendingRecovery
	GoalStateRecoveryInProgress
	GoalStateRecoveryExpired
)

func (s GoalState) String() string {
	switch s {
	case GoalStateActive:
		return "active"
	case GoalStateBrokenPendingRecovery:
		return "broken_pending_recovery"
	case GoalStateRecoveryInProgress:
		return "recovery_in_progress"
	case GoalStateRecoveryExpired:
		return "recovery_expired"
	default:
		return "no_goal"
	}
}

// Goal is the per-app daily time limit and its streak bookkeeping. Mutated
// only by the state machine and explicit user edits; a limit change never
// recomputes past days.
type Goal struct {
	AppID             string    `json:"appId"`
	AppName           string    `json:"appName"`
	DailyLimitMinutes int       `json:"dailyLimitMinutes"`
	Enabled           bool      `json:"enabled"`
	CurrentStreak     int       `json:"currentStreak"`
	LongestStreak     int       `json:"longestStreak"`
	LastCompletedDate time.Time `json:"lastCompletedDate"`
	LastBrokenDate    time.Time `json:"lastBrokenDate"`
	// LastEvaluatedDate marks the most recent day already processed by the
	// state machine; re-evaluating that day is a no-op.
	LastEvaluatedDate time.Time `json:"lastEvaluatedDate"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// GoalProgress is the pull-style progress view exposed to the UI layer.
type GoalProgress struct {
	DailyLimit       int     `json:"dailyLimit"`
	UsedMinutes      float64 `json:"usedMinutes"`
	RemainingMinutes float64 `json:"remainingMinutes"`
	PercentageUsed   float64 `json:"percentageUsed"`
	IsOverLimit      bool    `json:"isOverLimit"`
}
