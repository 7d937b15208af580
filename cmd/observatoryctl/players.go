package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/store"

	"github.com/spf13/cobra"
)

const defaultDuplicateThreshold = 0.80

func loadRoster(ctx context.Context, st store.Store, allianceID int64) ([]domain.Player, error) {
	s, err := st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Rollback()
	return s.ListPlayers(ctx, allianceID)
}

func newAuditPlayersCommand(ctx *commandContext) *cobra.Command {
	var (
		file      string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "audit-players [name...]",
		Short: "Show how OCR-read names would resolve against the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := append([]string(nil), args...)
			if file != "" {
				fromFile, err := readNames(file)
				if err != nil {
					return err
				}
				names = append(names, fromFile...)
			}
			if len(names) == 0 {
				return errors.New("no names given")
			}

			return ctx.invoke(func(st store.Store, cfg *config.Config, db *sql.DB) error {
				defer db.Close()
				roster, err := loadRoster(cmd.Context(), st, cfg.AllianceID)
				if err != nil {
					return fmt.Errorf("failed to load roster: %w", err)
				}
				t := cfg.AuditThreshold
				if cmd.Flags().Changed("threshold") {
					t = threshold
				}
				matches := identity.Audit(names, roster, t)
				return ctx.output(cmd, matches, func() string {
					rows := make([][]string, 0, len(matches))
					for _, m := range matches {
						matched := m.Matched
						if matched == "" {
							matched = "-"
						}
						rows = append(rows, []string{m.Raw, m.Cleaned, matched, formatScore(m.Score), string(m.Method)})
					}
					return renderTable(
						[]string{"Read", "Cleaned", "Closest", "Score", "Method"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one name per line")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Similarity threshold (defaults to AUDIT_MATCH_THRESHOLD)")
	return cmd
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	return names, sc.Err()
}

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List roster entries that are probably the same player",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.invoke(func(st store.Store, cfg *config.Config, db *sql.DB) error {
				defer db.Close()
				roster, err := loadRoster(cmd.Context(), st, cfg.AllianceID)
				if err != nil {
					return fmt.Errorf("failed to load roster: %w", err)
				}
				pairs := identity.Duplicates(roster, threshold)
				return ctx.output(cmd, pairs, func() string {
					rows := make([][]string, 0, len(pairs))
					for _, p := range pairs {
						rows = append(rows, []string{
							fmt.Sprintf("%s (#%d)", p.First.Name, p.First.ID),
							fmt.Sprintf("%s (#%d)", p.Second.Name, p.Second.ID),
							formatScore(p.Score),
						})
					}
					return renderTable(
						[]string{"Player", "Possible Duplicate", "Similarity"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight},
					)
				})
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", defaultDuplicateThreshold, "Minimum name similarity")
	return cmd
}

func newPlayersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Repair the alliance roster",
	}
	cmd.AddCommand(newPlayersMergeCommand(ctx))
	return cmd
}

func newPlayersMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge KEEP DUPLICATE...",
		Short: "Fold duplicate roster entries and their history into one player",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.invoke(func(st store.Store, db *sql.DB) error {
				defer db.Close()
				report, err := adminTx(cmd.Context(), st, func(s store.Session) (identity.MergeReport, error) {
					return identity.MergePlayers(cmd.Context(), s, ids[0], ids[1:])
				})
				if err != nil {
					return err
				}
				return ctx.output(cmd, report, func() string { return renderMergeReport(report) })
			})
		},
	}
}

func renderMergeReport(r identity.MergeReport) string {
	rows := [][]string{
		{"kept", fmt.Sprintf("%s (#%d)", r.Kept.Name, r.Kept.ID)},
	}
	for _, p := range r.Merged {
		rows = append(rows, []string{"deleted player", fmt.Sprintf("%s (#%d)", p.Name, p.ID)})
	}
	rows = append(rows,
		[]string{"rows moved", strconv.Itoa(r.Rows.Moved)},
		[]string{"rows folded", strconv.Itoa(r.Rows.Folded)},
	)
	return renderTable([]string{"Change", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
