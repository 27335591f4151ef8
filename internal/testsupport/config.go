package testsupport

import (
	"path/filepath"
	"testing"

	"stepwise/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ImageDir = filepath.Join(base, "images")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken requires bearer authentication on the test daemon.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithHandoffTimeout bounds hand-off waits, in seconds.
func WithHandoffTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Handoff.TimeoutSeconds = seconds
	}
}

// WithDefaultTask changes the task used when clients do not name one.
func WithDefaultTask(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tasks.Default = name
	}
}

// WithImages writes small PNG instruction images into the image dir.
func WithImages(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			WriteImage(b.t, filepath.Join(b.cfg.Paths.ImageDir, name), 4, 4)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
