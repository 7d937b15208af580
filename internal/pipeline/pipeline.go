// Package pipeline runs curated samples through the offline classifier and
// the text parsers. Nothing is persisted and no AI backend is involved.
package pipeline

import (
	"context"
	"unicode/utf8"

	"alliance-observatory/internal/classify"
	"alliance-observatory/internal/constants"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/manifest"
	"alliance-observatory/internal/textocr"

	"github.com/rs/zerolog"
)

type Parsed struct {
	Summary     string                `json:"summary"`
	Overview    *domain.BearOverview  `json:"overview,omitempty"`
	Entries     []textocr.Entry       `json:"entries,omitempty"`
	Roster      []textocr.RosterEntry `json:"roster,omitempty"`
	TextPreview string                `json:"text_preview,omitempty"`
}

type Result struct {
	Sample    manifest.Sample    `json:"sample"`
	Detection classify.Detection `json:"detection"`
	Text      string             `json:"-"`
	Parsed    Parsed             `json:"parsed"`
	Err       string             `json:"error,omitempty"`
}

type Pipeline struct {
	text   textocr.Engine
	logger zerolog.Logger
}

func New(text textocr.Engine, logger zerolog.Logger) *Pipeline {
	if text == nil {
		text = textocr.Noop{}
	}
	return &Pipeline{text: text, logger: logger}
}

// Process classifies a sample, extracts its text, lets the text refine the
// type and parses it. Text extraction failures are reported on the result.
func (p *Pipeline) Process(ctx context.Context, s manifest.Sample) Result {
	res := Result{Sample: s, Detection: classify.Offline(s.Path, s.Note)}

	text, err := p.text.ExtractText(ctx, s.Path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", s.Path).Msg("text extraction failed")
		res.Err = err.Error()
	}
	res.Text = text

	if refined := classify.InferFromText(text, res.Detection.Type); refined != res.Detection.Type {
		p.logger.Debug().
			Str("path", s.Path).
			Str("from", res.Detection.Type.String()).
			Str("to", refined.String()).
			Msg("type refined from text")
		res.Detection.Type = refined
	}
	res.Parsed = parse(res.Detection.Type, text)
	return res
}

func (p *Pipeline) ProcessAll(ctx context.Context, samples []manifest.Sample) []Result {
	results := make([]Result, 0, len(samples))
	for _, s := range samples {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.Process(ctx, s))
	}
	return results
}

func parse(t domain.ScreenshotType, text string) Parsed {
	switch t {
	case domain.ScreenshotBearOverview:
		overview := textocr.ParseBearOverview(text)
		return Parsed{Summary: "Bear hunt overview", Overview: &overview}
	case domain.ScreenshotBearDamage:
		return Parsed{Summary: "Bear trap damage ranking", Entries: textocr.ParseRankedEntries(text, constants.RankedEntryLimit)}
	case domain.ScreenshotContribution:
		return Parsed{Summary: "Contribution leaderboard", Entries: textocr.ParseRankedEntries(text, constants.RankedEntryLimit)}
	case domain.ScreenshotAllianceMembers:
		return Parsed{
			Summary:     "Alliance roster",
			Roster:      textocr.ParseRoster(text, constants.RankedEntryLimit),
			TextPreview: preview(text),
		}
	}
	return Parsed{Summary: "Unclassified screenshot", TextPreview: preview(text)}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= constants.SamplePreviewChars {
		return text
	}
	return string([]rune(text)[:constants.SamplePreviewChars])
}
