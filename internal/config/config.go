package config

import (
	"fmt"
	"os"

	"github.com/mauv0809/earnings-quality/internal/engine"
	"gopkg.in/yaml.v3"
)

// Config is the file-backed configuration. Secrets (DATABASE_URL,
// FINANCIALS_API_KEY) stay in the environment; config.yaml carries tunables.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Engine engine.Params `yaml:"engine"`

	Ingest struct {
		BaseURL           string `yaml:"base_url"`
		RequestsPerSecond int    `yaml:"requests_per_second"`
	} `yaml:"ingest"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Engine = engine.DefaultParams()
	cfg.Ingest.BaseURL = "https://data.fiintrade.vn/api/v1/datatables"
	cfg.Ingest.RequestsPerSecond = 2
	return cfg
}

// Load reads a yaml config file, falling back to defaults for a missing file
// and for any field left unset.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Engine.DenomFloor <= 0 {
		cfg.Engine.DenomFloor = engine.DefaultParams().DenomFloor
	}
	if cfg.Engine.ScoreCap <= 0 {
		cfg.Engine.ScoreCap = engine.DefaultParams().ScoreCap
	}
	if cfg.Engine.Workers <= 0 {
		cfg.Engine.Workers = 1
	}
	if cfg.Ingest.RequestsPerSecond <= 0 {
		cfg.Ingest.RequestsPerSecond = 2
	}
	return cfg, nil
}
