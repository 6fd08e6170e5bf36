package engine

import (
	"context"
	"testing"
	"time"

	"aware/internal/types"
)

// breakStreakOn sets up a goal with the given streak and breaks it on day
// zero, leaving a fresh recovery in progress.
func breakStreakOn(t *testing.T, repo *MockRepository, sm *StateMachine, day time.Time, streak int) {
	t.Helper()
	ctx := context.Background()
	setupGoal(t, repo, "app", 60, streak)
	setDayTotal(t, repo, "app", day, 75)
	if err := sm.EvaluateDay(ctx, "app", day); err != nil {
		t.Fatalf("EvaluateDay() break failed: %v", err)
	}
}

func TestRecoveryCompletesAndRestoresStreak(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	breakStreakOn(t, repo, sm, day, 14)

	// Three compliant days complete the default requirement
	for i := 1; i <= 3; i++ {
		if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("EvaluateDay() day %d failed: %v", i, err)
		}
	}

	goal, _ := repo.GetGoal(ctx, "app")
	if goal.CurrentStreak != 15 {
		t.Errorf("restored streak = %d, want previousStreak+1 = 15", goal.CurrentStreak)
	}
	if goal.LongestStreak != 15 {
		t.Errorf("LongestStreak = %d, want 15", goal.LongestStreak)
	}

	latest, err := repo.GetLatestRecovery(ctx, "app")
	if err != nil {
		t.Fatalf("GetLatestRecovery() failed: %v", err)
	}
	if latest.State != types.RecoveryCompleted {
		t.Errorf("recovery state = %v, want completed", latest.State)
	}
	if latest.DaysCompleted != 3 {
		t.Errorf("DaysCompleted = %d, want 3", latest.DaysCompleted)
	}
}

func TestStateForDistinguishesFreshBreakFromSlip(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	breakStreakOn(t, repo, sm, day, 8)

	state, err := sm.StateFor(ctx, "app")
	if err != nil {
		t.Fatalf("StateFor() failed: %v", err)
	}
	if state != types.GoalStateBrokenPendingRecovery {
		t.Errorf("state right after the break = %v, want broken_pending_recovery", state)
	}

	// A slip resets progress to zero but the recovery window is underway
	setDayTotal(t, repo, "app", day.AddDate(0, 0, 1), 75)
	if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("EvaluateDay() slip failed: %v", err)
	}

	recovery, err := repo.GetActiveRecovery(ctx, "app")
	if err != nil {
		t.Fatalf("GetActiveRecovery() failed: %v", err)
	}
	if recovery.DaysCompleted != 0 {
		t.Fatalf("DaysCompleted after slip = %d, want 0", recovery.DaysCompleted)
	}

	state, err = sm.StateFor(ctx, "app")
	if err != nil {
		t.Fatalf("StateFor() failed: %v", err)
	}
	if state != types.GoalStateRecoveryInProgress {
		t.Errorf("state after a mid-recovery slip = %v, want recovery_in_progress", state)
	}
}

func TestRecoveryTwoDaysPlusOne(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	breakStreakOn(t, repo, sm, day, 7)
	for i := 1; i <= 2; i++ {
		if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("EvaluateDay() failed: %v", err)
		}
	}

	recovery, err := repo.GetActiveRecovery(ctx, "app")
	if err != nil {
		t.Fatalf("GetActiveRecovery() failed: %v", err)
	}
	if recovery.DaysCompleted != 2 {
		t.Fatalf("DaysCompleted = %d, want 2", recovery.DaysCompleted)
	}

	// One more compliant day completes it
	if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, 3)); err != nil {
		t.Fatalf("EvaluateDay() failed: %v", err)
	}
	goal, _ := repo.GetGoal(ctx, "app")
	if goal.CurrentStreak != 8 {
		t.Errorf("restored streak = %d, want 8", goal.CurrentStreak)
	}
}

func TestRecoverySlipResetsProgressButStaysOpen(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	breakStreakOn(t, repo, sm, day, 10)

	// Two compliant days, then a slip
	for i := 1; i <= 2; i++ {
		if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("EvaluateDay() failed: %v", err)
		}
	}
	setDayTotal(t, repo, "app", day.AddDate(0, 0, 3), 80)
	if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, 3)); err != nil {
		t.Fatalf("EvaluateDay() slip failed: %v", err)
	}

	recovery, err := repo.GetActiveRecovery(ctx, "app")
	if err != nil {
		t.Fatalf("slip should not close the recovery: %v", err)
	}
	if recovery.DaysCompleted != 0 {
		t.Errorf("DaysCompleted = %d, want 0 after slip", recovery.DaysCompleted)
	}
	if count := repo.RecoveryCount("app"); count != 1 {
		t.Errorf("slip created a new recovery, have %d", count)
	}

	// Recovery can still complete after the slip
	for i := 4; i <= 6; i++ {
		if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("EvaluateDay() failed: %v", err)
		}
	}
	goal, _ := repo.GetGoal(ctx, "app")
	if goal.CurrentStreak != 11 {
		t.Errorf("restored streak = %d, want 11", goal.CurrentStreak)
	}
}

func TestRecoveryExpiresAfterWindow(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	breakStreakOn(t, repo, sm, day, 20)

	// Slips keep resetting progress until the hard window runs out. Days
	// 1-13 alternate compliant and not, never reaching three in a row.
	for i := 1; i <= 13; i++ {
		if i%2 == 1 {
			setDayTotal(t, repo, "app", day.AddDate(0, 0, i), 90)
		}
		if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("EvaluateDay() day %d failed: %v", i, err)
		}
	}

	// Day 14 is past the expiry deadline
	if err := sm.EvaluateDay(ctx, "app", day.AddDate(0, 0, 14)); err != nil {
		t.Fatalf("EvaluateDay() expiry day failed: %v", err)
	}

	latest, err := repo.GetLatestRecovery(ctx, "app")
	if err != nil {
		t.Fatalf("GetLatestRecovery() failed: %v", err)
	}
	if latest.State != types.RecoveryExpired {
		t.Errorf("recovery state = %v, want expired", latest.State)
	}

	// The broken streak is gone for good; the compliant expiry day starts a
	// fresh streak from zero.
	goal, _ := repo.GetGoal(ctx, "app")
	if goal.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1 (fresh start after expiry)", goal.CurrentStreak)
	}
	if goal.LongestStreak != 20 {
		t.Errorf("LongestStreak = %d, want 20", goal.LongestStreak)
	}
}

func TestShouldShowReminderOncePerDay(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// No recovery at all: never remind
	show, err := sm.ShouldShowReminder(ctx, "app", day)
	if err != nil || show {
		t.Errorf("ShouldShowReminder() without recovery = (%v, %v), want (false, nil)", show, err)
	}

	breakStreakOn(t, repo, sm, day, 5)

	morning := day.AddDate(0, 0, 1).Add(9 * time.Hour)
	show, err = sm.ShouldShowReminder(ctx, "app", morning)
	if err != nil {
		t.Fatalf("ShouldShowReminder() failed: %v", err)
	}
	if !show {
		t.Error("first check of the day should remind")
	}

	evening := morning.Add(10 * time.Hour)
	show, err = sm.ShouldShowReminder(ctx, "app", evening)
	if err != nil {
		t.Fatalf("ShouldShowReminder() failed: %v", err)
	}
	if show {
		t.Error("second check the same day should not remind")
	}

	nextDay := morning.AddDate(0, 0, 1)
	show, err = sm.ShouldShowReminder(ctx, "app", nextDay)
	if err != nil {
		t.Fatalf("ShouldShowReminder() failed: %v", err)
	}
	if !show {
		t.Error("a new day should remind again")
	}
}

func TestRecoveryStatus(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	sm := NewStateMachine(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	status, err := sm.RecoveryStatus(ctx, "app")
	if err != nil {
		t.Fatalf("RecoveryStatus() failed: %v", err)
	}
	if status.State != types.RecoveryNotNeeded {
		t.Errorf("state = %v, want not needed", status.State)
	}

	breakStreakOn(t, repo, sm, day, 6)

	status, err = sm.RecoveryStatus(ctx, "app")
	if err != nil {
		t.Fatalf("RecoveryStatus() failed: %v", err)
	}
	if status.State != types.RecoveryInProgress {
		t.Errorf("state = %v, want in progress", status.State)
	}
	if status.PreviousStreak != 6 {
		t.Errorf("PreviousStreak = %d, want 6", status.PreviousStreak)
	}
	if want := day.AddDate(0, 0, 14); !status.ExpiresOn.Equal(want) {
		t.Errorf("ExpiresOn = %v, want %v", status.ExpiresOn, want)
	}
}
