package config

const (
	defaultConfigPath          = "~/.config/stepwise/config.toml"
	defaultLogDir              = "~/.local/share/stepwise/logs"
	defaultImageDir            = "~/.local/share/stepwise/images"
	defaultStateDir            = "~/.local/share/stepwise"
	defaultAPIBind             = "127.0.0.1:9099"
	defaultDetectorKind        = DetectorHTTP
	defaultDetectorURL         = "http://127.0.0.1:8000/detect"
	defaultDetectorTimeout     = 10
	defaultConfidenceThreshold = 0.5
	defaultMaxDimension        = 640
	defaultTask                = "lamp"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Detector kinds.
const (
	DetectorHTTP      = "http"
	DetectorWebsocket = "websocket"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			ImageDir: defaultImageDir,
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		Detector: Detector{
			Kind:                defaultDetectorKind,
			URL:                 defaultDetectorURL,
			TimeoutSeconds:      defaultDetectorTimeout,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Frames: Frames{
			MaxDimension: defaultMaxDimension,
		},
		Handoff: Handoff{
			Enabled: true,
		},
		Tasks: Tasks{
			Default: defaultTask,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
