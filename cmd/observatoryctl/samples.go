package main

import (
	"errors"
	"strconv"
	"strings"

	"alliance-observatory/internal/classify"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/manifest"
	"alliance-observatory/internal/pipeline"

	"github.com/spf13/cobra"
)

type sampleSource struct {
	manifestPath string
	dir          string
	limit        int
}

func (s *sampleSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.manifestPath, "manifest", "m", "", "YAML manifest listing samples")
	cmd.Flags().StringVarP(&s.dir, "dir", "d", "", "Directory of screenshots to use instead of a manifest")
	cmd.Flags().IntVar(&s.limit, "limit", 0, "Use at most this many samples")
}

func (s *sampleSource) load() ([]manifest.Sample, error) {
	var (
		samples []manifest.Sample
		err     error
	)
	switch {
	case s.manifestPath != "":
		samples, err = manifest.Load(s.manifestPath)
	case s.dir != "":
		samples, err = manifest.Discover(s.dir, domain.ScreenshotUnknown, "")
	default:
		return nil, errors.New("either --manifest or --dir is required")
	}
	if err != nil {
		return nil, err
	}
	if s.limit > 0 && len(samples) > s.limit {
		samples = samples[:s.limit]
	}
	return samples, nil
}

type classifiedSample struct {
	Sample    manifest.Sample    `json:"sample"`
	Detection classify.Detection `json:"detection"`
	Agrees    *bool              `json:"agrees_with_manifest,omitempty"`
}

func newClassifySamplesCommand(ctx *commandContext) *cobra.Command {
	var src sampleSource
	cmd := &cobra.Command{
		Use:   "classify-samples",
		Short: "Classify curated samples from their file names and notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := src.load()
			if err != nil {
				return err
			}
			out := make([]classifiedSample, 0, len(samples))
			rows := make([][]string, 0, len(samples))
			for _, s := range samples {
				c := classifiedSample{Sample: s, Detection: classify.Offline(s.Path, s.Note)}
				expected := "-"
				if s.Type != domain.ScreenshotUnknown {
					agrees := s.Type == c.Detection.Type
					c.Agrees = &agrees
					expected = s.Type.String()
				}
				out = append(out, c)
				rows = append(rows, []string{s.Path, expected, c.Detection.Type.String(), formatScore(c.Detection.Confidence), s.Note})
			}
			return ctx.output(cmd, out, func() string {
				return renderTable(
					[]string{"Sample", "Manifest Type", "Detected", "Confidence", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
			})
		},
	}
	src.register(cmd)
	return cmd
}

func newRunPipelineCommand(ctx *commandContext) *cobra.Command {
	var src sampleSource
	cmd := &cobra.Command{
		Use:   "run-pipeline",
		Short: "Run samples through the offline text pipeline without saving anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := src.load()
			if err != nil {
				return err
			}
			return ctx.invoke(func(p *pipeline.Pipeline) error {
				results := p.ProcessAll(cmd.Context(), samples)
				return ctx.output(cmd, results, func() string { return renderPipeline(results) })
			})
		},
	}
	src.register(cmd)
	return cmd
}

func renderPipeline(results []pipeline.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		found := len(r.Parsed.Entries) + len(r.Parsed.Roster)
		if r.Parsed.Overview != nil && r.Parsed.Overview.TrapID != nil {
			found++
		}
		note := r.Err
		if note == "" {
			note = strings.Join(strings.Fields(r.Parsed.TextPreview), " ")
		}
		rows = append(rows, []string{r.Sample.Path, r.Detection.Type.String(), r.Parsed.Summary, strconv.Itoa(found), note})
	}
	return renderTable(
		[]string{"Sample", "Type", "Summary", "Parsed", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
