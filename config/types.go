package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses human readable duration strings.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := string(text)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Allocation credits a bank balance at genesis.
type Allocation struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Genesis lists the balances written the first time the store is opened.
type Genesis struct {
	Allocations []Allocation `toml:"Allocations"`
}

// Auth configures bearer token verification for state-changing calls.
type Auth struct {
	HMACSecret       string   `toml:"HMACSecret"`
	Issuer           string   `toml:"Issuer"`
	Audience         []string `toml:"Audience"`
	AllowedClockSkew Duration `toml:"AllowedClockSkew"`
}

// RateLimit bounds request throughput per client.
type RateLimit struct {
	RatePerSecond float64 `toml:"RatePerSecond"`
	Burst         int     `toml:"Burst"`
}

// Indexer configures the sqlite event journal.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	DSN     string `toml:"DSN"`
	// SnapshotSchedule is a cron expression for market snapshots.
	SnapshotSchedule string `toml:"SnapshotSchedule"`
	// ExportDir receives parquet exports of the journal when set.
	ExportDir      string `toml:"ExportDir"`
	ExportSchedule string `toml:"ExportSchedule"`
}

// Log configures process logging.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}
