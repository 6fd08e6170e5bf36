package engine

import (
	"context"
	"fmt"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
	"aware/internal/types"
)

// StateMachine advances per-app goal streaks one completed calendar day at
// a time and drives the recovery workflow when a streak breaks.
type StateMachine struct {
	repo   repository.WellbeingRepository
	config *Config
	logger logging.Logger
}

// NewStateMachine creates a goal/streak state machine
func NewStateMachine(repo repository.WellbeingRepository, config *Config, logger logging.Logger) *StateMachine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &StateMachine{repo: repo, config: config, logger: logger}
}

// EvaluateDay classifies one completed calendar day for one app and applies
// the resulting streak transition. Re-running for an already processed day
// is a no-op; the monitor collaborator retries after crashes. Runs inside a
// repository transaction so the goal, recovery and evaluation marker move
// together.
func (m *StateMachine) EvaluateDay(ctx context.Context, appID string, date time.Time) error {
	day := types.DateOf(date)

	return m.repo.WithTransaction(ctx, func(repo repository.WellbeingRepository) error {
		goal, err := repo.GetGoal(ctx, appID)
		if err != nil {
			if repoerrors.IsNotFound(err) {
				return fmt.Errorf("%w: %s", ErrMissingGoal, appID)
			}
			return err
		}
		if !goal.Enabled {
			return nil
		}

		// Idempotence marker: this day has already been processed
		if !goal.LastEvaluatedDate.IsZero() && !goal.LastEvaluatedDate.Before(day) {
			return nil
		}

		// A day with zero tracked sessions counts as compliant; absence is
		// not failure.
		var total float64
		stats, err := repo.GetDailyStats(ctx, appID, day)
		if err != nil && !repoerrors.IsNotFound(err) {
			return err
		}
		if stats != nil {
			total = stats.TotalMinutes
		}
		compliant := total <= float64(goal.DailyLimitMinutes)

		recovery, err := repo.GetActiveRecovery(ctx, appID)
		if err != nil && !repoerrors.IsNotFound(err) {
			return err
		}

		// An expired recovery stops shielding the streak; the day is then
		// classified under the normal rules with the streak at 0.
		if recovery.Active() && m.recoveryExpired(recovery, day) {
			if err := m.expireRecovery(ctx, repo, recovery, day); err != nil {
				return err
			}
			recovery = nil
		}

		switch {
		case recovery.Active():
			if err := m.advanceRecovery(ctx, repo, goal, recovery, day, compliant); err != nil {
				return err
			}
		case compliant:
			goal.CurrentStreak++
			if goal.CurrentStreak > goal.LongestStreak {
				goal.LongestStreak = goal.CurrentStreak
			}
			goal.LastCompletedDate = day
		default:
			if err := m.breakStreak(ctx, repo, goal, day); err != nil {
				return err
			}
		}

		goal.LastEvaluatedDate = day
		if err := repo.SaveGoal(ctx, goal); err != nil {
			return err
		}

		m.logger.Info("Day evaluated",
			"app_id", appID,
			"date", day.Format("2006-01-02"),
			"total_minutes", total,
			"compliant", compliant,
			"streak", goal.CurrentStreak)
		return nil
	})
}

// EvaluateThrough catches up every unprocessed day from the day after the
// last evaluation up to and including the given day. Used on the first
// event after a day boundary or a restart.
func (m *StateMachine) EvaluateThrough(ctx context.Context, appID string, lastCompleted time.Time) error {
	end := types.DateOf(lastCompleted)

	goal, err := m.repo.GetGoal(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrMissingGoal, appID)
		}
		return err
	}
	if !goal.Enabled {
		return nil
	}

	// The first catch-up starts the clock: days before tracking began are
	// never classified.
	if goal.LastEvaluatedDate.IsZero() {
		goal.LastEvaluatedDate = end
		return m.repo.SaveGoal(ctx, goal)
	}

	for day := goal.LastEvaluatedDate.AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := m.EvaluateDay(ctx, appID, day); err != nil {
			return err
		}
	}
	return nil
}

// breakStreak handles a non-compliant day with no recovery shield: the
// streak resets and exactly one recovery window opens.
func (m *StateMachine) breakStreak(ctx context.Context, repo repository.WellbeingRepository, goal *types.Goal, day time.Time) error {
	broken := goal.CurrentStreak
	if broken > goal.LongestStreak {
		goal.LongestStreak = broken
	}
	goal.CurrentStreak = 0
	goal.LastBrokenDate = day

	recovery := &types.StreakRecovery{
		AppID:          goal.AppID,
		PreviousStreak: broken,
		StartDate:      day,
		RequiredDays:   m.config.RequiredRecoveryDays,
		State:          types.RecoveryInProgress,
	}
	if err := repo.CreateRecovery(ctx, recovery); err != nil {
		return err
	}

	m.logger.Info("Streak broken",
		"app_id", goal.AppID,
		"previous_streak", broken,
		"required_recovery_days", recovery.RequiredDays)
	return nil
}

// StateFor derives the state-machine position for an app from its goal and
// latest recovery record.
func (m *StateMachine) StateFor(ctx context.Context, appID string) (types.GoalState, error) {
	goal, err := m.repo.GetGoal(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return types.GoalStateNone, nil
		}
		return types.GoalStateNone, err
	}
	if !goal.Enabled {
		return types.GoalStateNone, nil
	}

	latest, err := m.repo.GetLatestRecovery(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return types.GoalStateActive, nil
		}
		return types.GoalStateNone, err
	}

	switch latest.State {
	case types.RecoveryInProgress:
		// The break day is the last evaluated day until the window sees its
		// first classification; after that the recovery is underway even
		// when a slip has reset its progress to zero.
		if !types.DateOf(goal.LastEvaluatedDate).After(latest.StartDate) {
			return types.GoalStateBrokenPendingRecovery, nil
		}
		return types.GoalStateRecoveryInProgress, nil
	case types.RecoveryExpired:
		if goal.CurrentStreak == 0 {
			return types.GoalStateRecoveryExpired, nil
		}
		return types.GoalStateActive, nil
	default:
		return types.GoalStateActive, nil
	}
}

// GoalProgress reports how the day stands against the limit. A day total
// over the limit clamps remaining minutes to zero.
func (m *StateMachine) GoalProgress(ctx context.Context, appID string, date time.Time) (*types.GoalProgress, error) {
	goal, err := m.repo.GetGoal(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingGoal, appID)
		}
		return nil, err
	}
	if !goal.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrMissingGoal, appID)
	}

	var used float64
	stats, err := m.repo.GetDailyStats(ctx, appID, types.DateOf(date))
	if err != nil && !repoerrors.IsNotFound(err) {
		return nil, err
	}
	if stats != nil {
		used = stats.TotalMinutes
	}

	limit := float64(goal.DailyLimitMinutes)
	progress := &types.GoalProgress{
		DailyLimit:       goal.DailyLimitMinutes,
		UsedMinutes:      used,
		RemainingMinutes: limit - used,
		IsOverLimit:      used > limit,
	}
	if limit > 0 {
		progress.PercentageUsed = used / limit * 100
	}
	if progress.RemainingMinutes < 0 {
		progress.RemainingMinutes = 0
	}
	return progress, nil
}
