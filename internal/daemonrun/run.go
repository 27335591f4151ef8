package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stepwise/internal/assets"
	"stepwise/internal/config"
	"stepwise/internal/daemon"
	"stepwise/internal/daemonctl"
	"stepwise/internal/detection"
	"stepwise/internal/handoff"
	"stepwise/internal/imaging"
	"stepwise/internal/logging"
	"stepwise/internal/tasks"
)

const healthCheckTimeout = 5 * time.Second

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the stepwise daemon and blocks until the context ends or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logHub := logging.NewStreamHub(4096)
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
		Development: opts.Development,
		Hub:         logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := daemonctl.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	detector, err := newDetector(cfg)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	if closer, ok := detector.(io.Closer); ok {
		defer closer.Close()
	}
	logDetectorSnapshot(signalCtx, logger, cfg, detector)

	images := assets.NewStore(cfg.Paths.ImageDir)
	desk := handoff.NewDesk(handoff.Credentials{
		MeetingNumber:   cfg.Handoff.MeetingNumber,
		MeetingPassword: cfg.Handoff.MeetingPassword,
		AppKey:          cfg.Handoff.AppKey,
		AppSecret:       cfg.Handoff.AppSecret,
	}, cfg.HandoffTimeout(), logger)

	d, err := daemon.New(cfg, logger, daemon.Deps{
		Registry:  tasks.Builtin(),
		Detector:  detector,
		Validator: imaging.NewValidator(cfg.Frames.MaxDimension),
		Desk:      desk,
		Images:    images,
		LogHub:    logHub,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if missing := d.Status().MissingImages; len(missing) > 0 {
		logging.WarnWithContext(logger, "instruction images missing", "images_missing",
			logging.Any("images", missing),
			logging.String("image_dir", images.Dir()),
			logging.Hint("copy the instruction images into paths.image_dir"),
			logging.Impact("clients receive image names without image data"),
		)
	}

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.Hint("check paths.api_bind and that no other stepwised is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("stepwise daemon shutting down")
	return nil
}

func newDetector(cfg *config.Config) (detection.Detector, error) {
	if cfg.Detector.Kind == config.DetectorWebsocket {
		ws, err := detection.NewWebsocketDetector(cfg.Detector.URL, cfg.Detector.ConfidenceThreshold, cfg.DetectorTimeout())
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	httpDetector, err := detection.NewHTTPDetector(cfg.Detector.URL, cfg.Detector.ConfidenceThreshold, cfg.DetectorTimeout())
	if err != nil {
		return nil, err
	}
	return httpDetector, nil
}

func logDetectorSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, detector detection.Detector) {
	attrs := []logging.Attr{
		logging.String("detector_kind", cfg.Detector.Kind),
		logging.String("detector_url", cfg.Detector.URL),
		logging.Float64("confidence_threshold", cfg.Detector.ConfidenceThreshold),
		logging.Duration("timeout", cfg.DetectorTimeout()),
	}
	checker, ok := detector.(interface {
		CheckHealth(context.Context) error
	})
	if !ok {
		logger.Info("detector configured", logging.Args(append(attrs, logging.String(logging.FieldEventType, "detector_snapshot"))...)...)
		return
	}
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := checker.CheckHealth(checkCtx); err != nil {
		logging.WarnWithContext(logger, "detector health check failed", "detector_unhealthy",
			append(attrs,
				logging.Error(err),
				logging.Hint("start the detection service or fix detector.url"),
				logging.Impact("frames fail until the detector is reachable"),
			)...,
		)
		return
	}
	logger.Info("detector configured", logging.Args(append(attrs,
		logging.String(logging.FieldEventType, "detector_snapshot"),
		logging.Bool("healthy", true),
	)...)...)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
