package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"unitfarm/native/farm"
)

type Config struct {
	ListenAddress      string      `toml:"ListenAddress"`
	DataDir            string      `toml:"DataDir"`
	NetworkName        string      `toml:"NetworkName"`
	Environment        string      `toml:"Environment"`
	AdminAddress       string      `toml:"AdminAddress"`
	VaultAddress       string      `toml:"VaultAddress"`
	DistributorAddress string      `toml:"DistributorAddress"`
	PayeesFile         string      `toml:"PayeesFile"`
	Farm               farm.Params `toml:"Farm"`
	Genesis            Genesis     `toml:"Genesis"`
	Auth               Auth        `toml:"Auth"`
	RateLimit          RateLimit   `toml:"RateLimit"`
	Indexer            Indexer     `toml:"Indexer"`
	Log                Log         `toml:"Log"`
	Telemetry          Telemetry   `toml:"Telemetry"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg, filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress: ":8545",
		DataDir:       "./farm-data",
		NetworkName:   "farm-local",
		Environment:   "dev",
		PayeesFile:    "payees.yaml",
		Farm:          farm.DefaultParams(),
		Auth: Auth{
			Issuer:           "farm-local",
			AllowedClockSkew: Duration{Duration: 30 * time.Second},
		},
		RateLimit: RateLimit{RatePerSecond: 20, Burst: 40},
		Indexer: Indexer{
			Enabled:          true,
			DSN:              "farm-index.sqlite",
			SnapshotSchedule: "@every 1m",
		},
		Log: Log{Level: "info"},
	}
}

func applyDefaults(cfg *Config, baseDir string) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "farm-local"
	}
	if cfg.Farm == (farm.Params{}) {
		cfg.Farm = farm.DefaultParams()
	}
	if cfg.RateLimit.RatePerSecond <= 0 {
		cfg.RateLimit.RatePerSecond = 20
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RatePerSecond * 2)
	}
	if cfg.PayeesFile != "" && !filepath.IsAbs(cfg.PayeesFile) && baseDir != "" {
		cfg.PayeesFile = filepath.Join(baseDir, cfg.PayeesFile)
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg, filepath.Dir(path))
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
