package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetector(); err != nil {
		return err
	}
	if c.Frames.MaxDimension <= 0 {
		return errors.New("frames.max_dimension must be positive")
	}
	if c.Handoff.TimeoutSeconds < 0 {
		return errors.New("handoff.timeout_seconds must be >= 0")
	}
	if strings.TrimSpace(c.Tasks.Default) == "" {
		return errors.New("tasks.default must be set")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetector() error {
	switch c.Detector.Kind {
	case DetectorHTTP, DetectorWebsocket:
	default:
		return fmt.Errorf("detector.kind: unsupported value %q (use %q or %q)", c.Detector.Kind, DetectorHTTP, DetectorWebsocket)
	}
	if c.Detector.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("detector.url is required. Set STEPWISE_DETECTOR_URL or edit %s (create with 'stepwise config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Detector.URL)
	if err != nil {
		return fmt.Errorf("detector.url: %w", err)
	}
	want := map[string][]string{
		DetectorHTTP:      {"http", "https"},
		DetectorWebsocket: {"ws", "wss"},
	}[c.Detector.Kind]
	if parsed.Scheme != want[0] && parsed.Scheme != want[1] {
		return fmt.Errorf("detector.url scheme %q does not match detector.kind %q", parsed.Scheme, c.Detector.Kind)
	}
	if c.Detector.TimeoutSeconds <= 0 {
		return errors.New("detector.timeout_seconds must be positive")
	}
	if c.Detector.ConfidenceThreshold < 0 || c.Detector.ConfidenceThreshold > 1 {
		return errors.New("detector.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
