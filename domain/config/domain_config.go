package config

// DomainConfig holds the business-rule constants for the visualization
// domain. Centralizing them here keeps the thresholds out of the
// entities and lets tests exercise non-default rules.
type DomainConfig struct {
	// ActiveActivityThreshold is the activity level above which a
	// region is considered active.
	ActiveActivityThreshold float64

	// ToggleHighActivity is the activity level a region snaps to when
	// toggled active through the UI affordance.
	ToggleHighActivity float64

	// ToggleLowActivity is the activity level a region snaps to when
	// toggled inactive.
	ToggleLowActivity float64

	// AutoLowRegionCount is the region count above which the auto LOD
	// policy drops to the low tier regardless of device class.
	AutoLowRegionCount int

	// AutoHighRegionCount is the region count at or below which a
	// high-end device gets the high tier.
	AutoHighRegionCount int

	// MaxRegionsPerGraph bounds graph ingestion.
	MaxRegionsPerGraph int

	// MaxConnectionsPerGraph bounds graph ingestion.
	MaxConnectionsPerGraph int
}

// DefaultDomainConfig returns the standard configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		ActiveActivityThreshold: 0.3,
		ToggleHighActivity:      0.5,
		ToggleLowActivity:       0.1,
		AutoLowRegionCount:      150,
		AutoHighRegionCount:     50,
		MaxRegionsPerGraph:      10000,
		MaxConnectionsPerGraph:  50000,
	}
}
