package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"stepwise/internal/assets"
	"stepwise/internal/config"
	"stepwise/internal/detection"
	"stepwise/internal/handoff"
	"stepwise/internal/logging"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

// Deps are the collaborators the daemon serves sessions with.
type Deps struct {
	Registry  *tasks.Registry
	Detector  detection.Detector
	Validator session.FrameValidator
	Desk      *handoff.Desk
	Images    *assets.Store
	LogHub    *logging.StreamHub
}

// Daemon serves frame sessions and the HTTP API and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *tasks.Registry
	detector  detection.Detector
	validator session.FrameValidator
	desk      *handoff.Desk
	images    *assets.Store
	hub       *logging.StreamHub
	sessions  *sessionRegistry

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	api       *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	LockFilePath    string
	StartedAt       time.Time
	Tasks           []string
	Sessions        int
	PendingHandoffs int
	MissingImages   []string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Registry == nil || deps.Detector == nil {
		return nil, errors.New("daemon requires config, task registry, and detector")
	}
	if _, err := deps.Registry.Get(cfg.Tasks.Default); err != nil {
		return nil, fmt.Errorf("tasks.default: %w", err)
	}
	if deps.Desk == nil {
		deps.Desk = handoff.NewDesk(handoff.Credentials{}, cfg.HandoffTimeout(), logger)
	}
	if deps.Images == nil {
		deps.Images = assets.NewStore(cfg.Paths.ImageDir)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		registry:  deps.Registry,
		detector:  deps.Detector,
		validator: deps.Validator,
		desk:      deps.Desk,
		images:    deps.Images,
		hub:       deps.LogHub,
		sessions:  newSessionRegistry(),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stepwise daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("stepwise daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.Hint("remove "+d.lockPath+" if no daemon is running"),
			logging.Impact("next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("stepwise daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Address returns the API listen address once started.
func (d *Daemon) Address() string { return d.api.address() }

// Handler returns the HTTP handler serving /ws and /api.
func (d *Daemon) Handler() http.Handler { return d.api.handler }

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		LockFilePath:    d.lockPath,
		StartedAt:       d.startedAt,
		Tasks:           d.registry.Names(),
		Sessions:        d.sessions.len(),
		PendingHandoffs: len(d.desk.Pending()),
		MissingImages:   d.images.Missing(d.registry.Images()),
	}
}
