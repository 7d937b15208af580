package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/ingest"
	"alliance-observatory/internal/manifest"
	"alliance-observatory/internal/memstore"
	"alliance-observatory/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type ingestOutput struct {
	Batch ingest.BatchResult `json:"batch"`
	Tally *memstore.Tally    `json:"dry_run_tally,omitempty"`
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		manifestPath string
		typeName     string
		limit        int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [screenshot...]",
		Short: "Process screenshots into the database",
		Long: "Process screenshots one at a time, in order. Files come from the arguments or a manifest.\n" +
			"With --dry-run the rows are written to an in-memory store and only counted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads, err := collectUploads(args, manifestPath, typeName, limit)
			if err != nil {
				return err
			}

			var extra []fx.Option
			var mem *memstore.Store
			if dryRun {
				mem = memstore.New()
				extra = append(extra,
					fx.Replace(fx.Annotate(mem, fx.As(new(store.Store)))),
					fx.Replace(fx.Annotate(mem, fx.As(new(store.OCRRecorder)))),
				)
			}

			run := func(o *ingest.Orchestrator, st store.Store, cfg *config.Config) error {
				if err := ingest.EnsureAlliance(cmd.Context(), st, cfg); err != nil {
					return err
				}
				batch, batchErr := o.ProcessBatch(cmd.Context(), uploads)
				out := ingestOutput{Batch: batch}
				if mem != nil {
					tally := mem.Tally()
					out.Tally = &tally
				}
				if err := ctx.output(cmd, out, func() string { return renderBatch(batch) }); err != nil {
					return err
				}
				return batchErr
			}
			if dryRun {
				return ctx.invoke(run, extra...)
			}
			return ctx.invoke(func(o *ingest.Orchestrator, st store.Store, cfg *config.Config, db *sql.DB) error {
				defer db.Close()
				return run(o, st, cfg)
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest listing screenshots")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Force the screenshot type for every file")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write to an in-memory store instead of the database")
	return cmd
}

func collectUploads(args []string, manifestPath, typeName string, limit int) ([]ingest.Upload, error) {
	var override domain.ScreenshotType
	if typeName != "" {
		t, ok := domain.ParseScreenshotType(typeName)
		if !ok || !t.Processable() {
			return nil, fmt.Errorf("unknown screenshot type %q", typeName)
		}
		override = t
	}

	var uploads []ingest.Upload
	if manifestPath != "" {
		samples, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, err
		}
		for _, s := range samples {
			uploads = append(uploads, ingest.Upload{Path: s.Path, Type: s.Type, Note: s.Note})
		}
	}
	for _, a := range args {
		uploads = append(uploads, ingest.Upload{Path: a})
	}
	if len(uploads) == 0 {
		return nil, errors.New("no screenshots given")
	}
	if override != domain.ScreenshotUnknown {
		for i := range uploads {
			uploads[i].Type = override
		}
	}
	if limit > 0 && len(uploads) > limit {
		uploads = uploads[:limit]
	}
	return uploads, nil
}

func renderBatch(batch ingest.BatchResult) string {
	rows := make([][]string, 0, len(batch.Results))
	for _, r := range batch.Results {
		status := "ok"
		if !r.Success {
			status = string(r.Category)
		}
		rows = append(rows, []string{
			r.Filename,
			r.Type.String(),
			string(r.Method),
			string(r.TimestampSource),
			status,
			strconv.Itoa(r.Counts.Created),
			strconv.Itoa(r.Counts.Updated),
			strconv.Itoa(r.Counts.Skipped),
			strconv.Itoa(r.Counts.Unresolved + r.Counts.Invalid),
			r.Message,
		})
	}
	table := renderTable(
		[]string{"File", "Type", "Method", "Time From", "Status", "Created", "Updated", "Skipped", "Dropped", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	return fmt.Sprintf("%s\n%d succeeded, %d failed, %d cancelled", table, batch.Succeeded, batch.Failed, batch.Cancelled)
}
