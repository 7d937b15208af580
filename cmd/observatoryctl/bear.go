package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/constants"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/store"

	"github.com/spf13/cobra"
)

func newBearCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bear",
		Short: "Inspect and repair bear hunt events",
	}
	cmd.AddCommand(newBearListCommand(ctx))
	cmd.AddCommand(newBearMergeCommand(ctx))
	cmd.AddCommand(newBearSplitCommand(ctx))
	return cmd
}

func newBearListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent bear events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.invoke(func(st store.Store, cfg *config.Config, db *sql.DB) error {
				defer db.Close()
				s, err := st.Begin(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Rollback()

				list, err := s.ListBearEvents(cmd.Context(), cfg.AllianceID, limit)
				if err != nil {
					return fmt.Errorf("failed to list bear events: %w", err)
				}
				return ctx.output(cmd, list, func() string { return renderBearEvents(list) })
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.BearEventListLimit, "Number of events to show")
	return cmd
}

func renderBearEvents(list []domain.BearEvent) string {
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		ended := "-"
		if e.EndedAt != nil {
			ended = e.EndedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			strconv.Itoa(e.TrapID),
			e.StartedAt.UTC().Format(time.RFC3339),
			ended,
			formatOptional(e.RallyCount),
			formatOptional(e.TotalDamage),
		})
	}
	return renderTable(
		[]string{"ID", "Trap", "Started", "Ended", "Rallies", "Total Damage"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

// adminTx runs fn in one session and commits only when it succeeds.
func adminTx[R any](ctx context.Context, st store.Store, fn func(store.Session) (R, error)) (R, error) {
	s, err := st.Begin(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	defer s.Rollback()

	report, err := fn(s)
	if err != nil {
		return report, err
	}
	return report, s.Commit()
}

func renderReport(r events.AdminReport) string {
	rows := [][]string{
		{"event", strconv.FormatInt(r.EventID, 10)},
		{"scores moved", strconv.Itoa(r.ScoresMoved)},
		{"scores merged", strconv.Itoa(r.ScoresMerged)},
	}
	for _, id := range r.EventsDeleted {
		rows = append(rows, []string{"deleted event", strconv.FormatInt(id, 10)})
	}
	if r.EventCreated != 0 {
		rows = append(rows, []string{"created event", strconv.FormatInt(r.EventCreated, 10)})
	}
	return renderTable([]string{"Change", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newBearMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge PRIMARY DUPLICATE...",
		Short: "Fold duplicate bear events into one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.invoke(func(st store.Store, locator *events.Locator, db *sql.DB) error {
				defer db.Close()
				report, err := adminTx(cmd.Context(), st, func(s store.Session) (events.AdminReport, error) {
					return locator.MergeBear(cmd.Context(), s, ids[0], ids[1:])
				})
				if err != nil {
					return err
				}
				return ctx.output(cmd, report, func() string { return renderReport(report) })
			})
		},
	}
}

func newBearSplitCommand(ctx *commandContext) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "split EVENT",
		Short: "Move scores recorded at or after a time into a new bear event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			splitAt, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			return ctx.invoke(func(st store.Store, locator *events.Locator, db *sql.DB) error {
				defer db.Close()
				report, err := adminTx(cmd.Context(), st, func(s store.Session) (events.AdminReport, error) {
					return locator.SplitBear(cmd.Context(), s, ids[0], splitAt)
				})
				if err != nil {
					return err
				}
				return ctx.output(cmd, report, func() string { return renderReport(report) })
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Split time in RFC3339")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
