package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
)

// LoadThresholds returns the detector thresholds. An empty path yields the
// defaults; otherwise the YAML file overrides the defaults field by field.
func LoadThresholds(path string) (analysis.Thresholds, error) {
	th := analysis.DefaultThresholds()
	if path == "" {
		return th, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(raw, &th); err != nil {
		return th, fmt.Errorf("parse thresholds %s: %w", path, err)
	}
	if th.ModeCooldownDays < 0 || th.IskraHorizonDays < th.MochilaHorizonDays {
		return th, fmt.Errorf("thresholds %s: iskra horizon must cover mochila horizon and cooldown must be non-negative", path)
	}
	return th, nil
}
