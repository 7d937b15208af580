// Package worker runs manifest jobs one at a time from an in-process FIFO
// queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"alliance-observatory/internal/config"

	"github.com/gofrs/flock"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull      = errors.New("worker queue is full")
	ErrStopping       = errors.New("worker is stopping")
	ErrAlreadyRunning = errors.New("worker already running")
	ErrLocked         = errors.New("another worker holds the lock")
)

const defaultHeartbeat = 5 * time.Second

type Job struct {
	ID           string    `json:"id"`
	ManifestPath string    `json:"manifest_path"`
	Limit        int       `json:"limit,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type Summary struct {
	JobID      string    `json:"job_id"`
	Files      int       `json:"files"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type Runner interface {
	Run(ctx context.Context, job Job) (Summary, error)
}

type State struct {
	Running        bool      `json:"running"`
	Queued         int       `json:"queued"`
	ProcessedJobs  int       `json:"processed_jobs"`
	ProcessedFiles int       `json:"processed_files"`
	LastHeartbeat  time.Time `json:"last_heartbeat,omitzero"`
	LastJob        *Summary  `json:"last_job,omitempty"`
}

type Option func(*Worker)

// WithHeartbeat sets how often an idle worker refreshes its heartbeat.
func WithHeartbeat(d time.Duration) Option {
	return func(w *Worker) { w.heartbeat = d }
}

// WithLock overrides the lock file path; an empty path disables locking.
func WithLock(path string) Option {
	return func(w *Worker) {
		w.lock = nil
		if path != "" {
			w.lock = flock.New(path)
		}
	}
}

// Worker owns its queue. A nil job on the queue is the stop sentinel.
type Worker struct {
	queue     chan *Job
	runner    Runner
	lock      *flock.Flock
	heartbeat time.Duration
	logger    zerolog.Logger

	stopping atomic.Bool

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(cfg *config.Config, runner Runner, logger zerolog.Logger, opts ...Option) *Worker {
	w := &Worker{
		queue:     make(chan *Job, cfg.WorkerQueueSize),
		runner:    runner,
		heartbeat: defaultHeartbeat,
		logger:    logger.With().Str("component", "worker").Logger(),
	}
	if cfg.LockPath != "" {
		w.lock = flock.New(cfg.LockPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start takes the lock and launches the loop. The loop outlives ctx; only
// Stop ends it.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Running {
		return ErrAlreadyRunning
	}

	if w.lock != nil {
		ok, err := w.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire worker lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("%s: %w", w.lock.Path(), ErrLocked)
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		w.loop(gctx)
		return nil
	})

	w.stopping.Store(false)
	w.cancel = cancel
	w.group = g
	w.state.Running = true
	w.state.LastHeartbeat = time.Now().UTC()
	w.logger.Info().Int("queue_size", cap(w.queue)).Msg("worker started")
	return nil
}

// Stop lets the in-flight file finish, drops the jobs still queued and
// releases the lock.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.state.Running {
		w.mu.Unlock()
		return
	}
	cancel, g := w.cancel, w.group
	w.mu.Unlock()

	w.stopping.Store(true)
	select {
	case w.queue <- nil:
	default:
	}
	cancel()
	_ = g.Wait()

	dropped := 0
drain:
	for {
		select {
		case job := <-w.queue:
			if job != nil {
				dropped++
			}
		default:
			break drain
		}
	}
	if dropped > 0 {
		w.logger.Warn().Int("dropped", dropped).Msg("dropped queued jobs on stop")
	}

	if w.lock != nil {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to release worker lock")
		}
	}

	w.mu.Lock()
	w.state.Running = false
	w.cancel = nil
	w.group = nil
	w.mu.Unlock()
	w.logger.Info().Msg("worker stopped")
}

// Enqueue never blocks: a full queue is reported to the caller.
func (w *Worker) Enqueue(job Job) (string, error) {
	if w.stopping.Load() {
		return "", ErrStopping
	}
	if job.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate job id: %w", err)
		}
		job.ID = id
	}
	job.EnqueuedAt = time.Now().UTC()

	select {
	case w.queue <- &job:
	default:
		return "", ErrQueueFull
	}
	w.logger.Info().
		Str("job_id", job.ID).
		Str("manifest", job.ManifestPath).
		Int("limit", job.Limit).
		Msg("job enqueued")
	return job.ID, nil
}

func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.state
	s.Queued = len(w.queue)
	if s.LastJob != nil {
		last := *s.LastJob
		s.LastJob = &last
	}
	return s
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat()
		case job := <-w.queue:
			if job == nil {
				return
			}
			if w.stopping.Load() {
				w.logger.Warn().Str("job_id", job.ID).Msg("worker stopping, job dropped")
				continue
			}
			w.run(ctx, *job)
		}
	}
}

func (w *Worker) run(ctx context.Context, job Job) {
	log := w.logger.With().Str("job_id", job.ID).Logger()
	log.Info().Str("manifest", job.ManifestPath).Msg("job started")
	start := time.Now()

	summary, err := w.safeRun(ctx, job)
	summary.JobID = job.ID
	summary.FinishedAt = time.Now().UTC()
	if err != nil {
		summary.Error = err.Error()
		log.Error().Err(err).Msg("job failed")
	}

	w.mu.Lock()
	w.state.ProcessedJobs++
	w.state.ProcessedFiles += summary.Files
	w.state.LastHeartbeat = summary.FinishedAt
	w.state.LastJob = &summary
	w.mu.Unlock()

	log.Info().
		Int("files", summary.Files).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("cancelled", summary.Cancelled).
		Dur("duration", time.Since(start)).
		Msg("job finished")
}

func (w *Worker) safeRun(ctx context.Context, job Job) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.runner.Run(ctx, job)
}

func (w *Worker) beat() {
	w.mu.Lock()
	w.state.LastHeartbeat = time.Now().UTC()
	w.mu.Unlock()
}
