package engine

import (
	"context"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/repository"
	"aware/internal/types"
)

// recoveryExpired reports whether the hard expiry window has elapsed. A
// single slip never expires a recovery; only the elapsed window does.
func (m *StateMachine) recoveryExpired(recovery *types.StreakRecovery, day time.Time) bool {
	deadline := types.DateOf(recovery.StartDate).AddDate(0, 0, m.config.RecoveryExpiryDays)
	return !day.Before(deadline)
}

func (m *StateMachine) expireRecovery(ctx context.Context, repo repository.WellbeingRepository, recovery *types.StreakRecovery, day time.Time) error {
	recovery.State = types.RecoveryExpired
	recovery.ClosedAt = day
	if err := repo.UpdateRecovery(ctx, recovery); err != nil {
		return err
	}

	m.logger.Info("Recovery expired",
		"app_id", recovery.AppID,
		"previous_streak", recovery.PreviousStreak,
		"days_completed", recovery.DaysCompleted)
	return nil
}

// advanceRecovery processes one evaluated day while a recovery shields the
// streak. A compliant day counts toward the requirement; completing the
// requirement restores the broken streak plus the completing day. A
// non-compliant day resets progress but keeps the window open.
func (m *StateMachine) advanceRecovery(ctx context.Context, repo repository.WellbeingRepository, goal *types.Goal, recovery *types.StreakRecovery, day time.Time, compliant bool) error {
	if !compliant {
		if recovery.DaysCompleted > 0 {
			m.logger.Info("Recovery progress reset",
				"app_id", recovery.AppID,
				"days_completed", recovery.DaysCompleted)
		}
		recovery.DaysCompleted = 0
		return repo.UpdateRecovery(ctx, recovery)
	}

	recovery.DaysCompleted++
	if recovery.DaysCompleted < recovery.RequiredDays {
		return repo.UpdateRecovery(ctx, recovery)
	}

	// The day that triggers completion counts toward the restored streak
	recovery.State = types.RecoveryCompleted
	recovery.ClosedAt = day
	if err := repo.UpdateRecovery(ctx, recovery); err != nil {
		return err
	}

	goal.CurrentStreak = recovery.PreviousStreak + 1
	if goal.CurrentStreak > goal.LongestStreak {
		goal.LongestStreak = goal.CurrentStreak
	}
	goal.LastCompletedDate = day

	m.logger.Info("Recovery completed",
		"app_id", recovery.AppID,
		"restored_streak", goal.CurrentStreak)
	return nil
}

// ShouldShowReminder reports whether a recovery reminder is due, marking it
// shown for the day. Fires at most once per calendar day while a recovery
// is in progress.
func (m *StateMachine) ShouldShowReminder(ctx context.Context, appID string, now time.Time) (bool, error) {
	recovery, err := m.repo.GetActiveRecovery(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	today := types.DateOf(now)
	if !recovery.LastReminderDate.IsZero() && !recovery.LastReminderDate.Before(today) {
		return false, nil
	}

	recovery.LastReminderDate = today
	if err := m.repo.UpdateRecovery(ctx, recovery); err != nil {
		return false, err
	}
	return true, nil
}

// RecoveryStatus reports the latest recovery for an app, NotNeeded when the
// app has never broken a streak.
func (m *StateMachine) RecoveryStatus(ctx context.Context, appID string) (*types.RecoveryStatus, error) {
	recovery, err := m.repo.GetLatestRecovery(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return &types.RecoveryStatus{State: types.RecoveryNotNeeded}, nil
		}
		return nil, err
	}

	return &types.RecoveryStatus{
		State:          recovery.State,
		PreviousStreak: recovery.PreviousStreak,
		RequiredDays:   recovery.RequiredDays,
		DaysCompleted:  recovery.DaysCompleted,
		StartDate:      recovery.StartDate,
		ExpiresOn:      types.DateOf(recovery.StartDate).AddDate(0, 0, m.config.RecoveryExpiryDays),
	}, nil
}
