package classify

import (
	"context"
	"fmt"

	"alliance-observatory/internal/vision"

	"github.com/rs/zerolog"
)

type AIClassifier interface {
	Classify(ctx context.Context, image []byte) (vision.Classification, error)
}

const (
	DefaultAIFloor          = 0.7
	DefaultHeuristicCeiling = 0.8
)

// Detector combines the vision classifier with the filename heuristic.
// A nil AIClassifier means detection is heuristic only.
type Detector struct {
	ai               AIClassifier
	aiFloor          float64
	heuristicCeiling float64
	logger           zerolog.Logger
}

func NewDetector(ai AIClassifier, aiFloor, heuristicCeiling float64, logger zerolog.Logger) *Detector {
	return &Detector{ai: ai, aiFloor: aiFloor, heuristicCeiling: heuristicCeiling, logger: logger}
}

// Detect never fails. The second return value reports whether the vision
// backend was called.
func (d *Detector) Detect(ctx context.Context, filename string, image []byte) (Detection, bool) {
	heuristic := FromFilename(filename)
	if d.ai == nil {
		return heuristic, false
	}

	c, err := d.ai.Classify(ctx, image)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("error_type", fmt.Sprintf("%T", err)).
			Str("filename", filename).
			Str("fallback_type", heuristic.Type.String()).
			Msg("ai classification failed, using filename heuristic")
		return heuristic, true
	}
	if !c.Type.Processable() && c.Raw != "unknown" {
		d.logger.Warn().
			Str("ai_type", c.Raw).
			Str("filename", filename).
			Str("fallback_type", heuristic.Type.String()).
			Msg("ai returned an unrecognized screenshot type, using filename heuristic")
		return heuristic, true
	}

	ai := Detection{Type: c.Type, Confidence: c.Confidence, Method: MethodAI}
	decided := d.Arbitrate(ai, heuristic)
	d.logger.Info().
		Str("filename", filename).
		Str("ai_type", ai.Type.String()).
		Float64("ai_confidence", ai.Confidence).
		Str("heuristic_type", heuristic.Type.String()).
		Float64("heuristic_confidence", heuristic.Confidence).
		Str("decided_type", decided.Type.String()).
		Str("method", string(decided.Method)).
		Msg("screenshot type detected")
	return decided, true
}

// Arbitrate picks between the two detections. A confident heuristic beats
// an unsure AI. A side that names no processable type abstains; the result
// is unknown only when both sides name different processable types.
func (d *Detector) Arbitrate(ai, heuristic Detection) Detection {
	if ai.Confidence >= d.aiFloor {
		return ai
	}
	if heuristic.Confidence > d.heuristicCeiling {
		return heuristic
	}
	if !heuristic.Type.Processable() {
		return ai
	}
	if !ai.Type.Processable() {
		return heuristic
	}
	if ai.Type != heuristic.Type {
		return Detection{Type: unknownType, Confidence: ai.Confidence, Method: MethodArbitration}
	}
	return ai
}
