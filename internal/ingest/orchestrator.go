// Package ingest drives screenshots from upload to persisted rows, one file
// at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alliance-observatory/internal/classify"
	"alliance-observatory/internal/config"
	"alliance-observatory/internal/constants"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/textocr"
	"alliance-observatory/internal/timestamp"
	"alliance-observatory/internal/upsert"
	"alliance-observatory/internal/vision"

	"github.com/rs/zerolog"
)

type State string

const (
	StateReceived          State = "received"
	StateTypeDetected      State = "type-detected"
	StateTimestampResolved State = "timestamp-resolved"
	StateExtracted         State = "extracted"
	StatePersisted         State = "persisted"
)

// Upload is one file to process. A processable Type skips detection.
type Upload struct {
	Path string                `json:"path"`
	Type domain.ScreenshotType `json:"type"`
	Note string                `json:"note,omitempty"`
}

type Result struct {
	Filename        string                `json:"filename"`
	Type            domain.ScreenshotType `json:"screenshot_type"`
	Confidence      float64               `json:"confidence"`
	Method          classify.Method       `json:"method,omitempty"`
	Timestamp       time.Time             `json:"timestamp,omitzero"`
	TimestampSource timestamp.Source      `json:"timestamp_source,omitempty"`
	State           State                 `json:"state"`
	FailedAt        State                 `json:"failed_at,omitempty"`
	Success         bool                  `json:"success"`
	Category        ErrorCategory         `json:"error_category,omitempty"`
	ErrorType       string                `json:"error_type,omitempty"`
	Message         string                `json:"message"`
	Counts          domain.RowCounts      `json:"counts"`
	UsedVision      bool                  `json:"used_vision"`
	Deleted         bool                  `json:"deleted"`

	err error
}

// Err returns the error that failed the file, if any.
func (r Result) Err() error {
	return r.err
}

type BatchResult struct {
	Results   []Result         `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Cancelled int              `json:"cancelled"`
	Counts    domain.RowCounts `json:"counts"`
}

func (b *BatchResult) add(r Result) {
	b.Results = append(b.Results, r)
	switch {
	case r.Success:
		b.Succeeded++
		b.Counts = b.Counts.Add(r.Counts)
	case r.Category == CategoryCancelled:
		b.Cancelled++
	default:
		b.Failed++
	}
}

// Sleeper waits between vision-backed files. It returns early with the
// context's error.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Option func(*Orchestrator)

func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

type Orchestrator struct {
	store    store.Store
	detector *classify.Detector
	stamps   *timestamp.Resolver
	vision   *vision.Extractor
	text     textocr.Engine
	upserter *upsert.Upserter
	logger   zerolog.Logger

	allianceID      int64
	delay           time.Duration
	deleteProcessed bool
	maxImageBytes   int64
	sleep           Sleeper
}

// NewOrchestrator wires the pipeline. A nil extractor disables every
// vision-backed screenshot type.
func NewOrchestrator(
	st store.Store,
	detector *classify.Detector,
	stamps *timestamp.Resolver,
	extractor *vision.Extractor,
	text textocr.Engine,
	upserter *upsert.Upserter,
	cfg *config.Config,
	logger zerolog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:           st,
		detector:        detector,
		stamps:          stamps,
		vision:          extractor,
		text:            text,
		upserter:        upserter,
		logger:          logger,
		allianceID:      cfg.AllianceID,
		delay:           cfg.RateLimitDelay,
		deleteProcessed: cfg.DeleteProcessed,
		maxImageBytes:   cfg.MaxImageBytes,
		sleep:           sleep,
	}
	if !cfg.AIEnabled {
		o.vision = nil
	}
	if o.text == nil {
		o.text = textocr.Noop{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessBatch handles uploads in order. Only a store that cannot open a
// session stops the batch; every other failure stays with its file.
func (o *Orchestrator) ProcessBatch(ctx context.Context, uploads []Upload) (BatchResult, error) {
	var batch BatchResult
	start := time.Now()

	for i, up := range uploads {
		if ctx.Err() != nil {
			for _, rest := range uploads[i:] {
				batch.add(cancelled(rest))
			}
			o.logger.Warn().
				Int("cancelled", len(uploads)-i).
				Msg("batch cancelled, remaining files skipped")
			break
		}

		fileCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.FileTimeout)
		res := o.ProcessFile(fileCtx, up)
		cancel()
		batch.add(res)

		if errors.Is(res.err, domain.ErrStoreUnavailable) {
			for _, rest := range uploads[i+1:] {
				batch.add(cancelled(rest))
			}
			return batch, fmt.Errorf("batch aborted at %s: %w", res.Filename, res.err)
		}

		if res.UsedVision && i < len(uploads)-1 && o.delay > 0 {
			o.logger.Debug().Dur("delay", o.delay).Msg("waiting before next vision request")
			if err := o.sleep(ctx, o.delay); err != nil {
				o.logger.Debug().Err(err).Msg("rate limit wait interrupted")
			}
		}
	}

	o.logger.Info().
		Int("files", len(uploads)).
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Int("cancelled", batch.Cancelled).
		Int("rows_written", batch.Counts.Written()).
		Dur("duration", time.Since(start)).
		Msg("batch processed")
	return batch, nil
}

func cancelled(up Upload) Result {
	return Result{
		Filename: filepath.Base(up.Path),
		Type:     up.Type,
		State:    StateReceived,
		FailedAt: StateTypeDetected,
		Category: CategoryCancelled,
		Message:  "Batch stopped before this file was processed.",
		err:      context.Canceled,
	}
}

// ProcessFile runs one upload through every state. It never panics and
// never returns a partial commit.
func (o *Orchestrator) ProcessFile(ctx context.Context, up Upload) (res Result) {
	res = Result{Filename: filepath.Base(up.Path), Type: up.Type, State: StateReceived}
	log := o.logger.With().
		Str("filename", res.Filename).
		Int64("alliance_id", o.allianceID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("state", string(res.State)).Msg("panic while processing screenshot")
			res = o.fail(log, res, next(res.State), &panicError{value: r})
		}
	}()

	image, err := os.ReadFile(up.Path)
	if err != nil {
		return o.fail(log, res, StateTypeDetected, fmt.Errorf("failed to read screenshot: %w", err))
	}
	if int64(len(image)) > o.maxImageBytes && o.maxImageBytes > 0 {
		return o.fail(log, res, StateTypeDetected, fmt.Errorf("image is %d bytes, limit is %d: %w", len(image), o.maxImageBytes, domain.ErrValidation))
	}

	var detection classify.Detection
	if up.Type.Processable() {
		detection = classify.Detection{Type: up.Type, Confidence: 1, Method: classify.MethodOverride}
	} else {
		detection, res.UsedVision = o.detector.Detect(ctx, up.Path, image)
	}
	res.Type, res.Confidence, res.Method = detection.Type, detection.Confidence, detection.Method
	res.State = StateTypeDetected

	rt, ok := routes[res.Type]
	if !ok {
		return o.fail(log, res, StateTimestampResolved, fmt.Errorf("%s: %w", res.Type, domain.ErrUnsupportedType))
	}

	res.Timestamp, res.TimestampSource = o.stamps.Resolve(up.Path)
	res.State = StateTimestampResolved

	if rt.usesVision {
		res.UsedVision = true
	}
	persist, err := rt.extract(ctx, o, up.Path, image)
	if err != nil {
		return o.fail(log, res, StateExtracted, err)
	}
	res.State = StateExtracted

	counts, err := o.persist(ctx, persist, upsert.Capture{
		AllianceID: o.allianceID,
		At:         res.Timestamp,
		Source:     res.Filename,
	})
	if err != nil {
		return o.fail(log, res, StatePersisted, err)
	}
	res.Counts = counts
	res.State = StatePersisted
	res.Success = true
	res.Message = fmt.Sprintf("Saved %d %s", counts.Created+counts.Updated, rt.noun)

	log.Info().
		Str("screenshot_type", res.Type.String()).
		Str("method", string(res.Method)).
		Str("timestamp_source", string(res.TimestampSource)).
		Int("created", counts.Created).
		Int("updated", counts.Updated).
		Int("skipped", counts.Skipped).
		Int("unresolved", counts.Unresolved).
		Int("invalid", counts.Invalid).
		Msg("screenshot processed")

	if o.deleteProcessed {
		res.Deleted = o.remove(log, up.Path)
	}
	return res
}

// persist owns the session: commit on success, rollback on anything else,
// including a panic inside the routine.
func (o *Orchestrator) persist(ctx context.Context, fn persistFunc, c upsert.Capture) (domain.RowCounts, error) {
	sess, err := o.store.Begin(ctx)
	if err != nil {
		return domain.RowCounts{}, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sess.Rollback(); rbErr != nil {
			o.logger.Error().Err(rbErr).Msg("failed to roll back session")
		}
	}()

	counts, err := fn(ctx, sess, c)
	if err != nil {
		return counts, err
	}
	if err := sess.Commit(); err != nil {
		return counts, err
	}
	committed = true
	return counts, nil
}

func (o *Orchestrator) fail(log zerolog.Logger, res Result, at State, err error) Result {
	res.Success = false
	res.FailedAt = at
	res.err = err
	res.Category, res.Message = Categorize(err)
	res.ErrorType = ErrorType(err)
	var pe *panicError
	if errors.As(err, &pe) {
		res.ErrorType = "panic"
	}

	event := log.Error()
	if res.Category == CategoryValidation || res.Category == CategoryUnsupported {
		event = log.Warn()
	}
	event.Err(err).
		Str("screenshot_type", res.Type.String()).
		Str("state", string(res.State)).
		Str("failed_at", string(at)).
		Str("error_category", string(res.Category)).
		Str("error_type", res.ErrorType).
		Msg("screenshot processing failed")
	return res
}

func (o *Orchestrator) remove(log zerolog.Logger, path string) bool {
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("error_type", ErrorType(err)).Msg("failed to delete processed screenshot")
		}
		return false
	}
	log.Info().Msg("deleted processed screenshot")
	return true
}

func next(s State) State {
	switch s {
	case StateReceived:
		return StateTypeDetected
	case StateTypeDetected:
		return StateTimestampResolved
	case StateTimestampResolved:
		return StateExtracted
	default:
		return StatePersisted
	}
}
