package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ifscore/score"
)

// Config captures the runtime configuration for ifsd.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	Environment   string `toml:"Environment"`
	DataDir       string `toml:"DataDir"`

	Storage   StorageConfig   `toml:"storage"`
	Weights   score.Weights   `toml:"weights"`
	Policy    PolicyConfig    `toml:"policy"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Export    ExportConfig    `toml:"export"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StorageConfig selects the score database.
type StorageConfig struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// PolicyConfig points at an optional YAML threshold override file.
type PolicyConfig struct {
	File string `toml:"File"`
}

// RateLimitConfig bounds per-client request rates on the API.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"RequestsPerMinute"`
	Burst             int `toml:"Burst"`
}

// ExportConfig drives the nightly compliance export run.
type ExportConfig struct {
	Enabled   bool   `toml:"Enabled"`
	OutputDir string `toml:"OutputDir"`
	RunHour   int    `toml:"RunHour"`
	RunMinute int    `toml:"RunMinute"`
}

// TelemetryConfig configures the OTLP exporters. An empty endpoint disables
// export entirely.
type TelemetryConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// LoggingConfig controls structured log output and optional file rotation.
type LoggingConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./ifs-data"
	}
	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		cfg.Storage.DSN = filepath.Join(cfg.DataDir, "ifs.db")
	}
	if cfg.Weights == (score.Weights{}) {
		cfg.Weights = score.DefaultWeights()
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 120
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 30
	}
	if strings.TrimSpace(cfg.Export.OutputDir) == "" {
		cfg.Export.OutputDir = "./ifs-exports"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 7
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
}

func validate(cfg *Config) error {
	if err := cfg.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage driver %q is not supported", cfg.Storage.Driver)
	}
	if cfg.Export.RunHour < 0 || cfg.Export.RunHour > 23 {
		return fmt.Errorf("export RunHour %d out of range", cfg.Export.RunHour)
	}
	if cfg.Export.RunMinute < 0 || cfg.Export.RunMinute > 59 {
		return fmt.Errorf("export RunMinute %d out of range", cfg.Export.RunMinute)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		Environment:   "dev",
		DataDir:       "./ifs-data",
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    filepath.Join("./ifs-data", "ifs.db"),
		},
		Weights: score.DefaultWeights(),
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             30,
		},
		Export: ExportConfig{
			Enabled:   true,
			OutputDir: "./ifs-exports",
			RunHour:   2,
			RunMinute: 30,
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
			Traces:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
