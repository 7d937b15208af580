package main

import (
	"fmt"
	"strings"

	"alliance-observatory/internal/retention"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete uploaded screenshots older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.invoke(func(cleaner *retention.Cleaner) error {
				report, err := cleaner.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.output(cmd, report, func() string {
					var b strings.Builder
					fmt.Fprintf(&b, "scanned %d, deleted %d, failed %d", report.Scanned, len(report.Deleted), report.Failed)
					for _, p := range report.Deleted {
						fmt.Fprintf(&b, "\n  %s", p)
					}
					return b.String()
				})
			})
		},
	}
}
