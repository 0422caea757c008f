package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/kvstore"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

var errNoSnapshot = errors.New("no saved cockpit found")

func openStore(ctx context.Context) (kvstore.Store, string, error) {
	store, err := kvstore.Open(ctx, kvstore.Config{
		Driver:   viper.GetString("store.driver"),
		Path:     viper.GetString("store.path"),
		RedisURL: viper.GetString("store.redis_url"),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open store: %w", err)
	}
	key := viper.GetString("store.key")
	if key == "" {
		key = service.DefaultSnapshotKey
	}
	return store, key, nil
}

// loadState reads and decodes the snapshot under key
func loadState(ctx context.Context, store kvstore.Store, key string) (model.CockpitState, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return model.CockpitState{}, errNoSnapshot
	}
	if err != nil {
		return model.CockpitState{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return service.DecodeSnapshot(data)
}

func withState(cmd *cobra.Command, fn func(state model.CockpitState) error) error {
	ctx := cmd.Context()
	store, key, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := loadState(ctx, store, key)
	if err != nil {
		return err
	}
	return fn(state)
}

func parseAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q, expected YYYY-MM-DD", value)
	}
	return at, nil
}

func summaryCmd() *cobra.Command {
	var (
		format string
		atFlag string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the review summary of the saved loan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseAt(atFlag)
			if err != nil {
				return err
			}
			return withState(cmd, func(state model.CockpitState) error {
				if state.Loan == nil {
					return service.ErrNoLoanLoaded
				}
				summary := service.GenerateReviewSummary(state.Rationales, state.Loan.ID, at)
				return writeSummary(cmd.OutOrStdout(), summary, format)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text, json)")
	cmd.Flags().StringVar(&atFlag, "at", "", "evaluate staleness as of this date (YYYY-MM-DD)")
	return cmd
}

func writeSummary(w io.Writer, summary model.ReviewSummary, format string) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, summary.SummaryText)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func statusCmd() *cobra.Command {
	var atFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the saved rationales with their current staleness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseAt(atFlag)
			if err != nil {
				return err
			}
			return withState(cmd, func(state model.CockpitState) error {
				writeStatus(cmd.OutOrStdout(), service.RefreshStatuses(state, at), at)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&atFlag, "at", "", "evaluate staleness as of this date (YYYY-MM-DD)")
	return cmd
}

func writeStatus(w io.Writer, state model.CockpitState, at time.Time) {
	if state.Loan == nil {
		fmt.Fprintln(w, "No loan loaded.")
		return
	}

	fmt.Fprintf(w, "Loan %s (%s), source %s\n", state.Loan.ID, state.Loan.BorrowerReference, state.DataSource)
	fmt.Fprintf(w, "Approval logic age: %d months\n\n", service.ApprovalLogicAgeMonths(state.Loan.ApprovalDate, at))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RATIONALE\tSTATUS\tDAYS SINCE REVIEW")
	for _, r := range state.Rationales {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Title, r.Status, service.DaysSinceReview(r.LastReviewedAt, at))
	}
	_ = tw.Flush()

	if n := len(state.PendingRationales); n > 0 {
		fmt.Fprintf(w, "\n%d rationale(s) awaiting confirmation\n", n)
	}
}

func clearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved cockpit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.New("refusing to delete the saved cockpit without --force")
			}
			ctx := cmd.Context()
			store, key, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Remove(ctx, key); err != nil {
				return fmt.Errorf("failed to delete snapshot: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved cockpit deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}
