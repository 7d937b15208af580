package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type Completer interface {
	Complete(ctx context.Context, prompt string, image []byte) ([]byte, error)
}

// Extractor runs the per-screen prompts and records every reply it decodes.
type Extractor struct {
	completer Completer
	recorder  store.OCRRecorder
	model     string
	logger    zerolog.Logger
}

func NewExtractor(completer Completer, recorder store.OCRRecorder, model string, logger zerolog.Logger) *Extractor {
	return &Extractor{completer: completer, recorder: recorder, model: model, logger: logger}
}

func (e *Extractor) Classify(ctx context.Context, image []byte) (Classification, error) {
	raw, err := e.completer.Complete(ctx, classifyPrompt, image)
	if err != nil {
		return Classification{}, err
	}
	return DecodeClassification(raw)
}

func (e *Extractor) Members(ctx context.Context, path string, image []byte) (domain.MembersPayload, error) {
	return extract(ctx, e, domain.ScreenshotAllianceMembers, path, image, DecodeMembers)
}

func (e *Extractor) BearDamage(ctx context.Context, path string, image []byte) (domain.BearDamagePayload, error) {
	return extract(ctx, e, domain.ScreenshotBearDamage, path, image, DecodeBearDamage)
}

func (e *Extractor) FoundrySignup(ctx context.Context, path string, image []byte) (domain.FoundrySignupPayload, error) {
	return extract(ctx, e, domain.ScreenshotFoundrySignup, path, image, DecodeFoundrySignup)
}

func (e *Extractor) FoundryResult(ctx context.Context, path string, image []byte) (domain.FoundryResultPayload, error) {
	return extract(ctx, e, domain.ScreenshotFoundryResult, path, image, DecodeFoundryResult)
}

func (e *Extractor) ACSignup(ctx context.Context, path string, image []byte) (domain.ACSignupPayload, error) {
	return extract(ctx, e, domain.ScreenshotACSignup, path, image, DecodeACSignup)
}

func (e *Extractor) Contribution(ctx context.Context, path string, image []byte) (domain.ContributionPayload, error) {
	return extract(ctx, e, domain.ScreenshotContribution, path, image, DecodeContribution)
}

func (e *Extractor) AlliancePower(ctx context.Context, path string, image []byte) (domain.AlliancePowerPayload, error) {
	return extract(ctx, e, domain.ScreenshotAlliancePower, path, image, DecodeAlliancePower)
}

func extract[T any](ctx context.Context, e *Extractor, kind domain.ScreenshotType, path string, image []byte, decode func([]byte) (T, error)) (T, error) {
	var zero T
	prompt, ok := extractionPrompts[kind]
	if !ok {
		return zero, fmt.Errorf("no extraction prompt for %s: %w", kind, domain.ErrUnsupportedType)
	}

	start := time.Now()
	raw, err := e.completer.Complete(ctx, prompt, image)
	if err != nil {
		return zero, err
	}
	payload, err := decode(raw)
	if err != nil {
		return zero, err
	}
	e.logger.Debug().
		Str("kind", kind.String()).
		Str("path", path).
		Dur("duration", time.Since(start)).
		Msg("vision extraction finished")

	e.record(ctx, kind, path, raw)
	return payload, nil
}

// record stores the raw reply. A failure here is logged and never fails the
// extraction.
func (e *Extractor) record(ctx context.Context, kind domain.ScreenshotType, path string, raw []byte) {
	if e.recorder == nil {
		return
	}
	id, err := gonanoid.New()
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to generate ocr result id")
		return
	}
	var cardCount struct {
		CardCount *int `json:"card_count"`
	}
	_ = json.Unmarshal(raw, &cardCount)

	if err := e.recorder.RecordOCRResult(ctx, &domain.OCRResult{
		ID:             id,
		ScreenshotPath: path,
		ModelName:      e.model,
		Kind:           kind.String(),
		CardCount:      cardCount.CardCount,
		Payload:        raw,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("failed to record ocr result")
	}
}
