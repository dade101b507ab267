package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateFormat = "2006-01-02"

// Config represents the top-level itau.yaml configuration.
type Config struct {
	Bank    BankConfig    `yaml:"bank"`
	Harvest HarvestConfig `yaml:"harvest"`
	Export  ExportConfig  `yaml:"export"`
}

// BankConfig points at the ItauLink portal.
type BankConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// HarvestConfig bounds how far back history is pulled. Dates use the
// "YYYY-MM-DD" format.
type HarvestConfig struct {
	AccountsSince string `yaml:"accounts_since"`
	CardsSince    string `yaml:"cards_since"`
}

// ExportConfig controls where the exported CSV files land.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Timeout returns the HTTP client timeout.
func (b BankConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// AccountsEpoch parses the accounts_since boundary date.
func (h HarvestConfig) AccountsEpoch() (time.Time, error) {
	t, err := time.Parse(dateFormat, h.AccountsSince)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing accounts_since: %w", err)
	}
	return t, nil
}

// CardsEpoch parses the cards_since boundary date.
func (h HarvestConfig) CardsEpoch() (time.Time, error) {
	t, err := time.Parse(dateFormat, h.CardsSince)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing cards_since: %w", err)
	}
	return t, nil
}

// Load reads an itau.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns the production portal with the full history the bank
// serves: account movements back to May 2016, card movements back to May
// 2012.
func Default() *Config {
	return &Config{
		Bank: BankConfig{
			BaseURL:        "https://www.itaulink.com.uy",
			TimeoutSeconds: 30,
		},
		Harvest: HarvestConfig{
			AccountsSince: "2016-05-01",
			CardsSince:    "2012-05-01",
		},
		Export: ExportConfig{
			Dir: "results",
		},
	}
}
