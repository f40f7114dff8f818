package config

import (
	"encoding/json"
	"fmt"
	"os"

	"launchpad-engine-go/internal/models"
)

// LoadConfig loads and parses the JSON config file at path.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	config := &models.Config{}
	err = decoder.Decode(config)
	if err != nil {
		return nil, err
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyDefaults(cfg *models.Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.SnapshotSec <= 0 {
		cfg.SnapshotSec = 30
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "console"
	}
}

func validate(cfg *models.Config) error {
	if cfg.Owner == "" {
		return fmt.Errorf("config: owner account must be set")
	}
	if cfg.WithdrawFeeRate == 0 || cfg.LaunchpadFeeRate == 0 {
		return fmt.Errorf("config: fee rates must be set and non-zero")
	}
	return nil
}
