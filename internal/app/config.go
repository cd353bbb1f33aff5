package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mrtui/internal/editor"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultServer = "https://maproulette.org"

// Config controls runtime behavior for the TUI client. Values are layered:
// defaults, then the YAML file, then MRTUI_* environment variables, then
// command line flags.
type Config struct {
	Server         string        `yaml:"server" env:"MRTUI_SERVER"`
	Session        string        `yaml:"session" env:"MRTUI_SESSION"`
	Editor         string        `yaml:"editor" env:"MRTUI_EDITOR"`
	JOSMURL        string        `yaml:"josm_url" env:"MRTUI_JOSM_URL"`
	IDURL          string        `yaml:"id_url" env:"MRTUI_ID_URL"`
	GeocoderURL    string        `yaml:"geocoder_url" env:"MRTUI_GEOCODER_URL"`
	Browser        string        `yaml:"browser" env:"MRTUI_BROWSER"`
	Difficulty     int           `yaml:"difficulty" env:"MRTUI_DIFFICULTY"`
	Link           string        `yaml:"-" env:"MRTUI_LINK"`
	DataDir        string        `yaml:"data_dir" env:"MRTUI_DATA_DIR"`
	LogPath        string        `yaml:"log_path" env:"MRTUI_LOG"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MRTUI_REQUEST_TIMEOUT"`
	ASCIIOnly      bool          `yaml:"ascii" env:"MRTUI_ASCII"`
	Debug          bool          `yaml:"debug" env:"MRTUI_DEBUG"`
	Dev            bool          `yaml:"dev" env:"MRTUI_DEV"`
	DevHTTP        string        `yaml:"dev_http" env:"MRTUI_DEV_HTTP"`
	Demo           bool          `yaml:"demo" env:"MRTUI_DEMO"`
	UI             UIConfig      `yaml:"ui"`
	Tracing        TracingConfig `yaml:"tracing"`

	// Version is the build version sent in the User-Agent.
	Version string `yaml:"-"`
}

type UIConfig struct {
	Style               string `yaml:"style" env:"MRTUI_UI_STYLE"`
	NotificationSeconds int    `yaml:"notification_seconds" env:"MRTUI_UI_NOTIFICATION_SECONDS"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MRTUI_OTEL_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"MRTUI_OTEL_ENDPOINT"`
}

func DefaultConfig() Config {
	return Config{
		Server:         DefaultServer,
		Editor:         string(editor.KindJOSM),
		JOSMURL:        editor.DefaultJOSMURL,
		IDURL:          editor.DefaultIDURL,
		GeocoderURL:    "https://nominatim.openstreetmap.org",
		RequestTimeout: 15 * time.Second,
		DevHTTP:        "127.0.0.1:17321",
		UI: UIConfig{
			Style:               "night",
			NotificationSeconds: 5,
		},
	}
}

// DefaultConfigPath is ~/.config/mrtui/config.yaml or the platform equivalent.
// UserAgent names this client to the server, with its version when known.
func (c Config) UserAgent() string {
	if c.Version == "" {
		return "mrtui"
	}
	return "mrtui/" + c.Version
}

func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mrtui", "config.yaml")
}

// LoadConfig layers the YAML file at path and the environment over the
// defaults. A missing file is only an error when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if c.Server == "" {
		c.Server = DefaultServer
	}
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.Server)
	}

	if _, ok := editor.ParseKind(c.Editor); !ok {
		return fmt.Errorf("invalid editor %q", c.Editor)
	}
	c.Editor = string(normalizeEditor(c.Editor))
	if c.JOSMURL == "" {
		c.JOSMURL = editor.DefaultJOSMURL
	}
	if c.IDURL == "" {
		c.IDURL = editor.DefaultIDURL
	}
	if strings.EqualFold(c.GeocoderURL, "off") {
		c.GeocoderURL = ""
	}

	if c.Difficulty < 0 || c.Difficulty > 3 {
		return fmt.Errorf("invalid difficulty %d (want 1-3, or 0 for any)", c.Difficulty)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}

	style, ok := normalizeStyle(c.UI.Style)
	if !ok {
		return fmt.Errorf("invalid ui style %q", c.UI.Style)
	}
	c.UI.Style = style
	if c.UI.NotificationSeconds <= 0 {
		c.UI.NotificationSeconds = 5
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "mrtui")
	}
	return nil
}
