package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aware/internal/app"
	"aware/internal/engine"
	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var environment string

	root := &cobra.Command{
		Use:           "aware",
		Short:         "Digital wellbeing decision engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&environment, "env", "production", "runtime environment (production, development, test)")

	root.AddCommand(newTrackCmd(&environment))
	root.AddCommand(newReportCmd(&environment))
	root.AddCommand(newGoalCmd(&environment))
	return root
}

func loadApp(environment string) (*app.App, error) {
	return app.New(environment)
}

// newTrackCmd runs the event loop: the external usage monitor writes one
// event per line on stdin and intervention decisions come back on stdout.
//
//	open <app-id> [app-name]
//	close <app-id>
//	respond <app-id> <continue|quit|skip> [session-seconds]
func newTrackCmd(environment *string) *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Consume app open/close events from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*environment)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.Startup(ctx)
			defer a.Shutdown(context.Background())

			out := cmd.OutOrStdout()
			a.Engine().SetNotifier(func(appID string, plan *types.InterventionPlan) {
				_, _ = fmt.Fprintf(out, "intervene %s type=%s variant=%d friction=%s score=%.1f (%s)\n",
					appID, plan.Type, plan.Variant, plan.Friction, plan.Score.Value, plan.Score.Level)
			})

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if err := handleEvent(ctx, a.Engine(), line); err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "event %q: %v\n", line, err)
					}
				}
			}
		},
	}
}

func handleEvent(ctx context.Context, eng *engine.Engine, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "open":
		if len(fields) < 2 {
			return fmt.Errorf("open needs an app id")
		}
		appName := fields[1]
		if len(fields) > 2 {
			appName = strings.Join(fields[2:], " ")
		}
		_, err := eng.OnSessionOpen(ctx, fields[1], appName, time.Now())
		return err

	case "close":
		if len(fields) != 2 {
			return fmt.Errorf("close needs an app id")
		}
		return eng.OnSessionClose(ctx, fields[1], time.Now())

	case "respond":
		if len(fields) < 3 {
			return fmt.Errorf("respond needs an app id and a choice")
		}
		choice, err := parseChoice(fields[2])
		if err != nil {
			return err
		}
		var sessionDuration time.Duration
		if len(fields) > 3 {
			seconds, err := strconv.Atoi(fields[3])
			if err != nil || seconds < 0 {
				return fmt.Errorf("invalid session seconds %q", fields[3])
			}
			sessionDuration = time.Duration(seconds) * time.Second
		}
		return eng.HandleResponse(ctx, fields[1], choice, sessionDuration)

	default:
		return fmt.Errorf("unknown event %q", fields[0])
	}
}

func parseChoice(s string) (types.UserChoice, error) {
	switch s {
	case "continue":
		return types.ChoiceContinue, nil
	case "quit":
		return types.ChoiceQuit, nil
	case "skip":
		return types.ChoiceSkip, nil
	default:
		return 0, fmt.Errorf("unknown choice %q", s)
	}
}

func newReportCmd(environment *string) *cobra.Command {
	var trendDays int

	report := &cobra.Command{
		Use:   "report <app-id>",
		Short: "Print goal progress, recovery and effectiveness for an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*environment)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			ctx := context.Background()
			appID := args[0]
			out := cmd.OutOrStdout()

			state, err := a.Engine().GoalState(ctx, appID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "state: %s\n", state)

			progress, err := a.Engine().GoalProgress(ctx, appID, time.Now())
			switch {
			case err == nil:
				_, _ = fmt.Fprintf(out, "today: %.0f/%d min used (%.0f%%), %.0f min remaining\n",
					progress.UsedMinutes, progress.DailyLimit, progress.PercentageUsed, progress.RemainingMinutes)
			case errors.Is(err, engine.ErrMissingGoal):
				_, _ = fmt.Fprintln(out, "today: no enabled goal")
			default:
				return err
			}

			recovery, err := a.Engine().RecoveryStatus(ctx, appID)
			if err != nil {
				return err
			}
			if recovery.State == types.RecoveryInProgress {
				_, _ = fmt.Fprintf(out, "recovery: %d/%d days, expires %s\n",
					recovery.DaysCompleted, recovery.RequiredDays, recovery.ExpiresOn.Format("2006-01-02"))
			}

			trend, err := a.Engine().GetTrend(ctx, appID, trendDays)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "trend (%dd): %s %.1f%% (%.1f vs %.1f min/day)\n",
				trend.PeriodDays, trend.Direction, trend.ChangePercent, trend.CurrentAverage, trend.PreviousAverage)

			eff, err := a.Engine().Effectiveness(ctx, appID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "interventions: %d shown, %.0f%% effective\n",
				eff.TotalShown, eff.SuccessRate*100)
			for _, t := range []types.InterventionType{
				types.InterventionBreathing, types.InterventionReflection,
				types.InterventionActivity, types.InterventionReminder,
			} {
				pt, ok := eff.PerType[t]
				if !ok || pt.Shown == 0 {
					continue
				}
				_, _ = fmt.Fprintf(out, "  %s: %d shown, %.0f%% effective\n", t, pt.Shown, pt.Rate*100)
			}
			return nil
		},
	}
	report.Flags().IntVar(&trendDays, "days", 7, "trend window in days")
	return report
}

func newGoalCmd(environment *string) *cobra.Command {
	goal := &cobra.Command{Use: "goal", Short: "Manage per-app daily limits"}

	var appName string
	setCmd := &cobra.Command{
		Use:   "set <app-id> <limit-minutes>",
		Short: "Create or update a daily limit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := strconv.Atoi(args[1])
			if err != nil || limit <= 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}

			a, err := loadApp(*environment)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())
			ctx := context.Background()

			// Preserve streak bookkeeping when the goal already exists.
			g, err := a.Repository().GetGoal(ctx, args[0])
			if err != nil {
				if !repoerrors.IsNotFound(err) {
					return err
				}
				g = &types.Goal{AppID: args[0]}
			}
			g.DailyLimitMinutes = limit
			g.Enabled = true
			if appName != "" {
				g.AppName = appName
			}
			if g.AppName == "" {
				g.AppName = args[0]
			}
			if err := a.Repository().SaveGoal(ctx, g); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "goal %s: %d min/day\n", g.AppID, g.DailyLimitMinutes)
			return nil
		},
	}
	setCmd.Flags().StringVar(&appName, "name", "", "display name for the app")

	var includeDisabled bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*environment)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			goals, err := a.Repository().ListGoals(context.Background(), !includeDisabled)
			if err != nil {
				return err
			}
			for _, g := range goals {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d min/day\tstreak %d (best %d)\tenabled=%t\n",
					g.AppID, g.DailyLimitMinutes, g.CurrentStreak, g.LongestStreak, g.Enabled)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&includeDisabled, "all", false, "include disabled goals")

	deleteCmd := &cobra.Command{
		Use:   "delete <app-id>",
		Short: "Delete a goal and its streak history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*environment)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			if err := a.Repository().DeleteGoal(context.Background(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted goal %s\n", args[0])
			return nil
		},
	}

	goal.AddCommand(setCmd, listCmd, deleteCmd)
	return goal
}
