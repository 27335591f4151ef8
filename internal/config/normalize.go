package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDetector()
	c.normalizeHandoff()
	c.normalizeLogging()
	c.Tasks.Default = strings.ToLower(strings.TrimSpace(c.Tasks.Default))
	if c.Tasks.Default == "" {
		c.Tasks.Default = defaultTask
	}
	if c.Frames.MaxDimension <= 0 {
		c.Frames.MaxDimension = defaultMaxDimension
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ImageDir, err = expandPath(strings.TrimSpace(c.Paths.ImageDir)); err != nil {
		return fmt.Errorf("paths.image_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("STEPWISE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeDetector() {
	c.Detector.Kind = strings.ToLower(strings.TrimSpace(c.Detector.Kind))
	if c.Detector.Kind == "" {
		c.Detector.Kind = defaultDetectorKind
	}
	c.Detector.URL = strings.TrimSpace(c.Detector.URL)
	if value, ok := os.LookupEnv("STEPWISE_DETECTOR_URL"); ok && strings.TrimSpace(value) != "" {
		c.Detector.URL = strings.TrimSpace(value)
	}
	if c.Detector.TimeoutSeconds <= 0 {
		c.Detector.TimeoutSeconds = defaultDetectorTimeout
	}
}

func (c *Config) normalizeHandoff() {
	fields := []struct {
		value *string
		env   string
	}{
		{&c.Handoff.MeetingNumber, "STEPWISE_MEETING_NUMBER"},
		{&c.Handoff.MeetingPassword, "STEPWISE_MEETING_PASSWORD"},
		{&c.Handoff.AppKey, "STEPWISE_MEETING_APP_KEY"},
		{&c.Handoff.AppSecret, "STEPWISE_MEETING_APP_SECRET"},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value != "" {
			continue
		}
		if value, ok := os.LookupEnv(f.env); ok {
			*f.value = strings.TrimSpace(value)
		}
	}
	if c.Handoff.TimeoutSeconds < 0 {
		c.Handoff.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
