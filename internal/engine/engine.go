package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
	"aware/internal/types"

	"github.com/google/uuid"
)

// DecisionNotifier is invoked whenever a new intervention decision becomes
// available. The UI layer owns its own refresh scheduling; the engine only
// signals.
type DecisionNotifier func(appID string, plan *types.InterventionPlan)

// pendingDecision tracks one shown plan until its outcome is recorded.
// Exactly one InterventionResult is written per pending decision.
type pendingDecision struct {
	plan         *types.InterventionPlan
	shownAt      time.Time
	streak       int
	goalProgress float64
	quickReopen  bool
}

// Engine is the decision core. It consumes open/close events from the
// usage-monitoring collaborator, maintains streaks, and produces
// intervention plans. Per-app state mutation is serialized; events for
// different apps proceed independently.
type Engine struct {
	repo   repository.WellbeingRepository
	config *Config
	logger logging.Logger

	aggregator   *Aggregator
	stateMachine *StateMachine
	scorer       *Scorer
	selector     *Selector
	recorder     *Recorder
	baseline     *BaselineBuilder

	locks *appLocks
	now   func() time.Time

	mu       sync.Mutex
	settings Settings
	pending  map[string]*pendingDecision
	notifier DecisionNotifier
}

// NewEngine wires the decision components around one repository
func NewEngine(repo repository.WellbeingRepository, config *Config, logger logging.Logger) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Engine{
		repo:         repo,
		config:       config,
		logger:       logger,
		aggregator:   NewAggregator(repo, config, logger),
		stateMachine: NewStateMachine(repo, config, logger),
		scorer:       NewScorer(config),
		selector:     NewSelector(config),
		recorder:     NewRecorder(repo, config, logger),
		baseline:     NewBaselineBuilder(repo, config, logger),
		locks:        newAppLocks(),
		now:          time.Now,
		settings:     DefaultSettings(),
		pending:      make(map[string]*pendingDecision),
	}
}

// SetNotifier installs the new-decision callback
func (e *Engine) SetNotifier(notifier DecisionNotifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = notifier
}

// SetSettings replaces the intervention preferences from the settings
// collaborator.
func (e *Engine) SetSettings(settings Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(settings.EnabledTypes) == 0 {
		settings.EnabledTypes = DefaultSettings().EnabledTypes
	}
	e.settings = settings
}

func (e *Engine) currentSettings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// OnSessionOpen handles a tracked app becoming foreground. It opens a
// session, catches up any pending day evaluations, and returns the
// intervention decision for this moment. An app without an enabled goal
// gets a do-not-intervene plan, never an error.
func (e *Engine) OnSessionOpen(ctx context.Context, appID, appName string, timestamp time.Time) (*types.InterventionPlan, error) {
	if appID == "" {
		return nil, fmt.Errorf("%w: empty app id", ErrInvalidSession)
	}

	lock := e.locks.get(appID)
	lock.Lock()
	defer lock.Unlock()

	// Quick-reopen looks at the last properly closed session, before any
	// forced close below muddies the picture.
	quickReopen, err := e.isQuickReopen(ctx, appID, timestamp)
	if err != nil {
		return nil, err
	}

	// A dangling open session means the monitor missed a close event.
	// Force-end it at the new open so its time is not lost.
	if open, err := e.repo.GetOpenSession(ctx, appID); err == nil {
		if !timestamp.After(open.StartTime) {
			return nil, fmt.Errorf("%w: open at %s not after prior open %s",
				ErrStaleEvent, timestamp.Format(time.RFC3339), open.StartTime.Format(time.RFC3339))
		}
		if err := e.forceClose(ctx, open, timestamp); err != nil {
			return nil, err
		}
	} else if !repoerrors.IsNotFound(err) {
		return nil, err
	}

	// An unresolved decision from a prior session is a terminal skip
	e.resolvePendingAsSkip(ctx, appID, timestamp)

	if err := e.catchUpEvaluation(ctx, appID, timestamp); err != nil {
		return nil, err
	}

	session := &types.UsageSession{
		ID:        uuid.New(),
		AppID:     appID,
		AppName:   appName,
		StartTime: timestamp,
	}
	if err := e.repo.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	plan, dec, err := e.decide(ctx, appID, timestamp, quickReopen)
	if err != nil {
		return nil, err
	}

	if plan.Intervene {
		e.mu.Lock()
		e.pending[appID] = dec
		notifier := e.notifier
		e.mu.Unlock()
		if notifier != nil {
			notifier(appID, plan)
		}
	}

	return plan, nil
}

// OnSessionClose handles a tracked app leaving the foreground. The session
// closes, stats fold in, and any unanswered decision for the app resolves
// as a skip.
func (e *Engine) OnSessionClose(ctx context.Context, appID string, timestamp time.Time) error {
	if appID == "" {
		return fmt.Errorf("%w: empty app id", ErrInvalidSession)
	}

	lock := e.locks.get(appID)
	lock.Lock()
	defer lock.Unlock()

	open, err := e.repo.GetOpenSession(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return fmt.Errorf("%w: close without open for %s", ErrStaleEvent, appID)
		}
		return err
	}
	if !timestamp.After(open.StartTime) {
		return fmt.Errorf("%w: close at %s not after open %s",
			ErrStaleEvent, timestamp.Format(time.RFC3339), open.StartTime.Format(time.RFC3339))
	}

	open.EndTime = timestamp
	if err := e.repo.SaveSession(ctx, open); err != nil {
		return err
	}
	if err := e.aggregator.RecordSessionClose(ctx, open); err != nil {
		return err
	}

	e.resolvePendingAsSkip(ctx, appID, timestamp)

	return e.catchUpEvaluation(ctx, appID, timestamp)
}

// forceClose ends a dangling session at the given time and folds it into
// the stats, marked as interrupted.
func (e *Engine) forceClose(ctx context.Context, session *types.UsageSession, at time.Time) error {
	session.EndTime = at
	session.WasInterrupted = true
	if err := e.repo.SaveSession(ctx, session); err != nil {
		return err
	}
	if err := e.aggregator.RecordSessionClose(ctx, session); err != nil {
		return err
	}

	e.logger.Warn("Dangling session force-closed",
		"app_id", session.AppID,
		"session_id", session.ID.String(),
		"duration_minutes", session.DurationMinutes())
	return nil
}

func (e *Engine) isQuickReopen(ctx context.Context, appID string, timestamp time.Time) (bool, error) {
	last, err := e.repo.GetLastClosedSession(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	gap := timestamp.Sub(last.EndTime)
	window := time.Duration(e.config.QuickReopenWindowSeconds) * time.Second
	return gap >= 0 && gap <= window, nil
}

// catchUpEvaluation runs the state machine over every completed day not yet
// processed. The current day is never evaluated; it is still accumulating.
func (e *Engine) catchUpEvaluation(ctx context.Context, appID string, now time.Time) error {
	yesterday := types.DateOf(now).AddDate(0, 0, -1)
	err := e.stateMachine.EvaluateThrough(ctx, appID, yesterday)
	if err != nil && !errors.Is(err, ErrMissingGoal) {
		return err
	}
	return nil
}

// decide runs the scorer and selector for the current moment
func (e *Engine) decide(ctx context.Context, appID string, timestamp time.Time, quickReopen bool) (*types.InterventionPlan, *pendingDecision, error) {
	noPlan := &types.InterventionPlan{
		ID:        uuid.New(),
		AppID:     appID,
		Intervene: false,
		Source:    types.SourceRuleBased,
		CreatedAt: timestamp,
	}

	goal, err := e.repo.GetGoal(ctx, appID)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return noPlan, nil, nil
		}
		return nil, nil, err
	}
	if !goal.Enabled {
		return noPlan, nil, nil
	}

	var used float64
	if stats, err := e.repo.GetDailyStats(ctx, appID, types.DateOf(timestamp)); err == nil {
		used = stats.TotalMinutes
	} else if !repoerrors.IsNotFound(err) {
		return nil, nil, err
	}

	recovery, err := e.repo.GetActiveRecovery(ctx, appID)
	if err != nil && !repoerrors.IsNotFound(err) {
		return nil, nil, err
	}

	baseline, err := e.baseline.Ensure(ctx, timestamp)
	if err != nil && !errors.Is(err, ErrInsufficientData) {
		return nil, nil, err
	}

	score := e.scorer.Score(ScoreInputs{
		QuickReopen:       quickReopen,
		UsedMinutes:       used,
		DailyLimitMinutes: goal.DailyLimitMinutes,
		HourOfDay:         timestamp.Hour(),
		PeakHour:          baseline.PeakHourFor(appID),
		CurrentStreak:     goal.CurrentStreak,
		RecoveryActive:    recovery.Active(),
	})

	// A poor moment is an explicit do-not-interrupt decision
	if score.Level == types.LevelPoor {
		noPlan.Score = score
		return noPlan, nil, nil
	}

	settings := e.currentSettings()
	effectiveness, err := e.recorder.Effectiveness(ctx, appID)
	if err != nil {
		return nil, nil, err
	}

	interventionType, variant, source := e.selector.SelectType(settings, effectiveness)
	burden := e.selector.Burden(score.Level, settings.Frequency)

	plan := &types.InterventionPlan{
		ID:        uuid.New(),
		AppID:     appID,
		Intervene: true,
		Type:      interventionType,
		Variant:   variant,
		Burden:    burden,
		Friction:  e.selector.Friction(burden),
		Score:     score,
		Source:    source,
		Persona:   DetectPersona(baseline),
		CreatedAt: timestamp,
	}

	var progress float64
	if goal.DailyLimitMinutes > 0 {
		progress = used / float64(goal.DailyLimitMinutes)
	}
	dec := &pendingDecision{
		plan:         plan,
		shownAt:      timestamp,
		streak:       goal.CurrentStreak,
		goalProgress: progress,
		quickReopen:  quickReopen,
	}

	e.logger.Info("Intervention decided",
		"app_id", appID,
		"score", score.Value,
		"level", score.Level.String(),
		"type", interventionType.String(),
		"friction", plan.Friction.String(),
		"source", source.String())
	return plan, dec, nil
}

// CurrentDecision returns the unanswered plan for an app, nil when there is
// none.
func (e *Engine) CurrentDecision(appID string) *types.InterventionPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dec, ok := e.pending[appID]; ok {
		return dec.plan
	}
	return nil
}

// HandleResponse records the user's answer to the pending decision for an
// app. sessionDuration is the usage after the intervention was shown. A
// response with no pending decision is stale; each decision is recorded
// exactly once.
func (e *Engine) HandleResponse(ctx context.Context, appID string, choice types.UserChoice, sessionDuration time.Duration) error {
	e.mu.Lock()
	dec, ok := e.pending[appID]
	if ok {
		delete(e.pending, appID)
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no pending decision for %s", ErrStaleEvent, appID)
	}

	now := e.now()
	err := e.recorder.Record(ctx, &types.InterventionResult{
		ID:                    dec.plan.ID,
		AppID:                 appID,
		Type:                  dec.plan.Type,
		Variant:               dec.plan.Variant,
		Choice:                choice,
		ResponseLatency:       now.Sub(dec.shownAt),
		PostInterventionUsage: sessionDuration,
		HourOfDay:             dec.shownAt.Hour(),
		StreakAtTime:          dec.streak,
		GoalProgressAtTime:    dec.goalProgress,
		QuickReopen:           dec.quickReopen,
		Score:                 dec.plan.Score.Value,
		Level:                 dec.plan.Score.Level,
		Persona:               dec.plan.Persona,
		Source:                dec.plan.Source,
		CreatedAt:             now,
	})
	if err != nil {
		// Put the decision back so the caller can retry; the write failed,
		// nothing was recorded. A newer decision for the app keeps its slot.
		e.mu.Lock()
		if _, exists := e.pending[appID]; !exists {
			e.pending[appID] = dec
		}
		e.mu.Unlock()
		return err
	}
	return nil
}

// resolvePendingAsSkip records a dismissed-without-answer decision as a
// terminal skip. Safe to call when nothing is pending.
func (e *Engine) resolvePendingAsSkip(ctx context.Context, appID string, at time.Time) {
	e.mu.Lock()
	dec, ok := e.pending[appID]
	if ok {
		delete(e.pending, appID)
	}
	e.mu.Unlock()

	if !ok {
		return
	}

	err := e.recorder.Record(ctx, &types.InterventionResult{
		ID:                    dec.plan.ID,
		AppID:                 appID,
		Type:                  dec.plan.Type,
		Variant:               dec.plan.Variant,
		Choice:                types.ChoiceSkip,
		ResponseLatency:       at.Sub(dec.shownAt),
		PostInterventionUsage: at.Sub(dec.shownAt),
		HourOfDay:             dec.shownAt.Hour(),
		StreakAtTime:          dec.streak,
		GoalProgressAtTime:    dec.goalProgress,
		QuickReopen:           dec.quickReopen,
		Score:                 dec.plan.Score.Value,
		Level:                 dec.plan.Score.Level,
		Persona:               dec.plan.Persona,
		Source:                dec.plan.Source,
		CreatedAt:             at,
	})
	if err != nil {
		logging.LogError(e.logger, err, "resolvePendingAsSkip", map[string]any{"app_id": appID})
		e.mu.Lock()
		if _, exists := e.pending[appID]; !exists {
			e.pending[appID] = dec
		}
		e.mu.Unlock()
	}
}

// GoalProgress reports the day's standing against the limit
func (e *Engine) GoalProgress(ctx context.Context, appID string, date time.Time) (*types.GoalProgress, error) {
	return e.stateMachine.GoalProgress(ctx, appID, date)
}

// RecoveryStatus reports the latest recovery for an app
func (e *Engine) RecoveryStatus(ctx context.Context, appID string) (*types.RecoveryStatus, error) {
	return e.stateMachine.RecoveryStatus(ctx, appID)
}

// GoalState reports the state-machine position for an app
func (e *Engine) GoalState(ctx context.Context, appID string) (types.GoalState, error) {
	return e.stateMachine.StateFor(ctx, appID)
}

// ShouldShowReminder reports whether a recovery reminder is due today
func (e *Engine) ShouldShowReminder(ctx context.Context, appID string) (bool, error) {
	lock := e.locks.get(appID)
	lock.Lock()
	defer lock.Unlock()
	return e.stateMachine.ShouldShowReminder(ctx, appID, e.now())
}

// GetTrend reports the usage trend for an app over the given window
func (e *Engine) GetTrend(ctx context.Context, appID string, periodDays int) (*types.Trend, error) {
	return e.aggregator.GetTrend(ctx, appID, periodDays, e.now())
}

// Effectiveness aggregates the intervention analytics for an app, or all
// apps with an empty appID.
func (e *Engine) Effectiveness(ctx context.Context, appID string) (*types.EffectivenessData, error) {
	return e.recorder.Effectiveness(ctx, appID)
}

// DeleteOldData applies the retention policy to sessions, stats and
// analytics records.
func (e *Engine) DeleteOldData(ctx context.Context, olderThan time.Time) error {
	return e.repo.DeleteOldData(ctx, olderThan)
}
