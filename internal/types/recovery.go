package types

import "time"

// RecoveryState is the position of the streak-repair sub-state-machine.
type RecoveryState int

const (
	RecoveryNotNeeded RecoveryState = iota
	RecoveryInProgress
	RecoveryCompleted
	RecoveryExpired
	RecoveryCancelled
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryInProgress:
		return "in_progress"
	case RecoveryCompleted:
		return "completed"
	case RecoveryExpired:
		return "expired"
	case RecoveryCancelled:
		return "cancelled"
	default:
		return "not_needed"
	}
}

// StreakRecovery is the grace-period record created when a streak breaks.
// At most one recovery per app is in progress at a time.
type StreakRecovery struct {
	ID               int64         `json:"id"`
	AppID            string        `json:"appId"`
	PreviousStreak   int           `json:"previousStreak"`
	StartDate        time.Time     `json:"startDate"`
	RequiredDays     int           `json:"requiredDays"`
	DaysCompleted    int           `json:"daysCompleted"`
	State            RecoveryState `json:"state"`
	LastReminderDate time.Time     `json:"lastReminderDate"`
	ClosedAt         time.Time     `json:"closedAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Active reports whether the recovery is still accumulating qualifying days.
func (r *StreakRecovery) Active() bool {
	return r != nil && r.State == RecoveryInProgress
}

// RecoveryStatus is the pull-style recovery view exposed to the UI layer.
type RecoveryStatus struct {
	State          RecoveryState `json:"state"`
	PreviousStreak int           `json:"previousStreak"`
	RequiredDays   int           `json:"requiredDays"`
	DaysCompleted  int           `json:"daysCompleted"`
	StartDate      time.Time     `json:"startDate"`
	ExpiresOn      time.Time     `json:"expiresOn"`
}
