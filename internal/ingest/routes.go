package ingest

import (
	"context"
	"errors"
	"fmt"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/textocr"
	"alliance-observatory/internal/upsert"
	"alliance-observatory/internal/vision"
)

// persistFunc writes an already extracted payload through one session.
type persistFunc func(ctx context.Context, s store.Session, c upsert.Capture) (domain.RowCounts, error)

// route is one entry of the dispatch table. Extraction runs before the
// session is opened; only the returned persistFunc touches the store.
type route struct {
	noun       string
	usesVision bool
	extract    func(ctx context.Context, o *Orchestrator, path string, image []byte) (persistFunc, error)
}

type extractor[P any] struct {
	usesVision bool
	fn         func(ctx context.Context, o *Orchestrator, path string, image []byte) (P, error)
}

func bind[P any](noun string, x extractor[P], persist func(*upsert.Upserter, context.Context, store.Session, upsert.Capture, P) (domain.RowCounts, error)) route {
	return route{
		noun:       noun,
		usesVision: x.usesVision,
		extract: func(ctx context.Context, o *Orchestrator, path string, image []byte) (persistFunc, error) {
			payload, err := x.fn(ctx, o, path, image)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, s store.Session, c upsert.Capture) (domain.RowCounts, error) {
				return persist(o.upserter, ctx, s, c, payload)
			}, nil
		},
	}
}

func viaVision[P any](fn func(*vision.Extractor, context.Context, string, []byte) (P, error)) extractor[P] {
	return extractor[P]{
		usesVision: true,
		fn: func(ctx context.Context, o *Orchestrator, path string, image []byte) (P, error) {
			if o.vision == nil {
				var zero P
				return zero, errVisionDisabled
			}
			return fn(o.vision, ctx, path, image)
		},
	}
}

var viaText = extractor[domain.BearOverview]{
	fn: func(ctx context.Context, o *Orchestrator, path string, _ []byte) (domain.BearOverview, error) {
		text, err := o.text.ExtractText(ctx, path)
		if errors.Is(err, domain.ErrDependencyMissing) {
			return domain.BearOverview{}, err
		}
		if err != nil {
			return domain.BearOverview{}, fmt.Errorf("failed to extract text from screenshot: %w: %w", domain.ErrValidation, err)
		}
		o.logger.Debug().
			Str("path", path).
			Int("text_length", len(text)).
			Msg("extracted overview text")
		return textocr.ParseBearOverview(text), nil
	},
}

var routes = map[domain.ScreenshotType]route{
	domain.ScreenshotAllianceMembers: bind("alliance member(s)", viaVision((*vision.Extractor).Members), (*upsert.Upserter).AllianceMembers),
	domain.ScreenshotBearDamage:      bind("bear damage score(s)", viaVision((*vision.Extractor).BearDamage), (*upsert.Upserter).BearDamage),
	domain.ScreenshotBearOverview:    bind("bear overview record(s)", viaText, (*upsert.Upserter).BearOverview),
	domain.ScreenshotFoundrySignup:   bind("foundry signup(s)", viaVision((*vision.Extractor).FoundrySignup), (*upsert.Upserter).FoundrySignup),
	domain.ScreenshotFoundryResult:   bind("foundry result(s)", viaVision((*vision.Extractor).FoundryResult), (*upsert.Upserter).FoundryResult),
	domain.ScreenshotACSignup:        bind("AC signup(s)", viaVision((*vision.Extractor).ACSignup), (*upsert.Upserter).ACSignup),
	domain.ScreenshotContribution:    bind("contribution record(s)", viaVision((*vision.Extractor).Contribution), (*upsert.Upserter).Contribution),
	domain.ScreenshotAlliancePower:   bind("alliance power record(s)", viaVision((*vision.Extractor).AlliancePower), (*upsert.Upserter).AlliancePower),
}
