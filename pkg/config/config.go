package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/drover/pkg/health"
	"gopkg.in/yaml.v3"
)

// Config holds the drover configuration
type Config struct {
	// Controller is the cluster controller base URL
	Controller string `yaml:"controller"`

	// Token is an optional bearer token for controller auth
	Token string `yaml:"token"`

	// PollInterval is the time between node polls
	PollInterval time.Duration `yaml:"pollInterval"`

	// RequestTimeout bounds each controller request
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// EventsFilter selects which health events polls request
	// ("ok", "warning", "error", "all", comma-separated)
	EventsFilter string `yaml:"eventsFilter"`

	// DataDir holds the snapshot cache
	DataDir string `yaml:"dataDir"`

	// StatusAddr is the status/metrics HTTP listen address
	StatusAddr string `yaml:"statusAddr"`

	// LogLevel is debug/info/warn/error
	LogLevel string `yaml:"logLevel"`

	// LogJSON selects JSON log output over console output
	LogJSON bool `yaml:"logJSON"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		PollInterval:   15 * time.Second,
		RequestTimeout: 10 * time.Second,
		EventsFilter:   "warning,error",
		DataDir:        defaultDataDir(),
		StatusAddr:     "127.0.0.1:9480",
		LogLevel:       "info",
	}
}

// Load reads the config file and applies defaults for unset fields.
// A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.StatusAddr == "" {
		cfg.StatusAddr = "127.0.0.1:9480"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, cfg.Validate()
}

// Validate checks field values that Load cannot default away
func (c Config) Validate() error {
	if _, ok := health.ParseFilter(c.EventsFilter); !ok {
		return fmt.Errorf("invalid eventsFilter %q", c.EventsFilter)
	}
	return nil
}

// Filter returns the parsed health events filter
func (c Config) Filter() health.EventsFilter {
	f, ok := health.ParseFilter(c.EventsFilter)
	if !ok {
		return health.DefaultFilter
	}
	return f
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drover"
	}
	return home + "/.drover"
}
