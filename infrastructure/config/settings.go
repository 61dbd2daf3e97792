package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VisualizationSettings is the runtime-changeable part of the
// configuration, loaded from a YAML file and hot-reloaded by the
// SettingsWatcher. It covers the device performance signal and the
// level-of-detail policy inputs.
type VisualizationSettings struct {
	// DeviceClass classifies the host device: low, medium or high.
	DeviceClass string `yaml:"deviceClass"`

	// LODMode selects the level-of-detail mode: manual, auto or hybrid.
	LODMode string `yaml:"lodMode"`

	// ForcedTier pins a manual detail tier; empty means none.
	ForcedTier string `yaml:"forcedTier"`
}

// DefaultVisualizationSettings returns the settings used when no file
// is configured
func DefaultVisualizationSettings() *VisualizationSettings {
	return &VisualizationSettings{
		DeviceClass: "medium",
		LODMode:     "auto",
	}
}

// LoadSettingsFromFile reads and validates a settings file
func LoadSettingsFromFile(path string) (*VisualizationSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := DefaultVisualizationSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks the settings labels
func (s *VisualizationSettings) Validate() error {
	switch s.DeviceClass {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("deviceClass must be low, medium or high, got %q", s.DeviceClass)
	}

	switch s.LODMode {
	case "manual", "auto", "hybrid":
	default:
		return fmt.Errorf("lodMode must be manual, auto or hybrid, got %q", s.LODMode)
	}

	switch s.ForcedTier {
	case "", "low", "medium", "high", "dynamic":
	default:
		return fmt.Errorf("forcedTier must be low, medium, high, dynamic or empty, got %q", s.ForcedTier)
	}

	return nil
}
