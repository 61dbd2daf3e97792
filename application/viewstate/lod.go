package viewstate

import (
	"neurotwin-backend/domain/config"
	pkgerrors "neurotwin-backend/pkg/errors"
)

// DeviceClass is the host device's performance classification
type DeviceClass string

const (
	DeviceClassLow    DeviceClass = "low"
	DeviceClassMedium DeviceClass = "medium"
	DeviceClassHigh   DeviceClass = "high"
)

// IsValid checks the device class label
func (d DeviceClass) IsValid() bool {
	switch d {
	case DeviceClassLow, DeviceClassMedium, DeviceClassHigh:
		return true
	default:
		return false
	}
}

// LODMode selects how the detail tier is chosen
type LODMode string

const (
	// LODModeManual uses whatever tier the caller forced.
	LODModeManual LODMode = "manual"

	// LODModeAuto derives the tier from device class and region count.
	LODModeAuto LODMode = "auto"

	// LODModeHybrid behaves like auto until a performance warning
	// arrives, then stays downgraded to low until an explicit reset.
	LODModeHybrid LODMode = "hybrid"
)

// IsValid checks the mode label
func (m LODMode) IsValid() bool {
	switch m {
	case LODModeManual, LODModeAuto, LODModeHybrid:
		return true
	default:
		return false
	}
}

// DetailTier is the level-of-detail trade between fidelity and
// performance
type DetailTier string

const (
	DetailTierLow     DetailTier = "low"
	DetailTierMedium  DetailTier = "medium"
	DetailTierHigh    DetailTier = "high"
	DetailTierDynamic DetailTier = "dynamic"
)

// IsValid checks the tier label
func (t DetailTier) IsValid() bool {
	switch t {
	case DetailTierLow, DetailTierMedium, DetailTierHigh, DetailTierDynamic:
		return true
	default:
		return false
	}
}

// DetailDescriptor is the deterministic rendering budget derived from a
// tier
type DetailDescriptor struct {
	ShowLabels       bool    `json:"showLabels"`
	GeometrySegments int     `json:"geometrySegments"`
	EffectDensity    float64 `json:"effectDensity"`
}

var detailDescriptors = map[DetailTier]DetailDescriptor{
	DetailTierLow:    {ShowLabels: false, GeometrySegments: 8, EffectDensity: 0.2},
	DetailTierMedium: {ShowLabels: true, GeometrySegments: 16, EffectDensity: 0.5},
	DetailTierHigh:   {ShowLabels: true, GeometrySegments: 32, EffectDensity: 1.0},
}

// LODPolicy maps device performance class and graph size to a detail
// tier. Not safe for concurrent use; the coordinator serializes access.
type LODPolicy struct {
	mode        LODMode
	deviceClass DeviceClass
	forcedTier  DetailTier
	degraded    bool
	revision    uint64
}

// NewLODPolicy creates a policy for the given device class and mode
func NewLODPolicy(deviceClass DeviceClass, mode LODMode) (*LODPolicy, error) {
	if !deviceClass.IsValid() {
		return nil, pkgerrors.NewGraphValidationError("device class must be low, medium or high")
	}
	if !mode.IsValid() {
		return nil, pkgerrors.NewGraphValidationError("lod mode must be manual, auto or hybrid")
	}
	return &LODPolicy{mode: mode, deviceClass: deviceClass}, nil
}

// Mode returns the current mode
func (p *LODPolicy) Mode() LODMode {
	return p.mode
}

// DeviceClass returns the device performance class
func (p *LODPolicy) DeviceClass() DeviceClass {
	return p.deviceClass
}

// Revision returns the mutation counter consumed by memoization
func (p *LODPolicy) Revision() uint64 {
	return p.revision
}

// Tier resolves the detail tier for the given region count:
//   - manual: the forced tier, never second-guessed
//   - auto: low when the device is low-end or the graph exceeds the
//     low-count threshold; high only for a high-end device with a small
//     graph; medium otherwise
//   - hybrid: dynamic (resolved per frame via the auto rule) until a
//     performance warning degrades it to low
func (p *LODPolicy) Tier(regionCount int, cfg *config.DomainConfig) DetailTier {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	switch p.mode {
	case LODModeManual:
		if p.forcedTier != "" {
			return p.forcedTier
		}
		return p.autoTier(regionCount, cfg)
	case LODModeHybrid:
		if p.degraded {
			return DetailTierLow
		}
		return DetailTierDynamic
	default:
		return p.autoTier(regionCount, cfg)
	}
}

func (p *LODPolicy) autoTier(regionCount int, cfg *config.DomainConfig) DetailTier {
	if p.deviceClass == DeviceClassLow || regionCount > cfg.AutoLowRegionCount {
		return DetailTierLow
	}
	if p.deviceClass == DeviceClassHigh && regionCount <= cfg.AutoHighRegionCount {
		return DetailTierHigh
	}
	return DetailTierMedium
}

// Descriptor resolves the rendering budget for a tier. The dynamic
// tier has no fixed budget; it resolves through the auto rule so the
// table stays total.
func (p *LODPolicy) Descriptor(tier DetailTier, regionCount int, cfg *config.DomainConfig) DetailDescriptor {
	if tier == DetailTierDynamic {
		if cfg == nil {
			cfg = config.DefaultDomainConfig()
		}
		tier = p.autoTier(regionCount, cfg)
	}
	return detailDescriptors[tier]
}

// ForceTier switches to manual mode with the given tier
func (p *LODPolicy) ForceTier(tier DetailTier) error {
	if !tier.IsValid() {
		return pkgerrors.NewGraphValidationError("detail tier must be low, medium, high or dynamic")
	}
	p.mode = LODModeManual
	p.forcedTier = tier
	p.revision++
	return nil
}

// ClearOverride returns to auto mode
func (p *LODPolicy) ClearOverride() {
	p.mode = LODModeAuto
	p.forcedTier = ""
	p.revision++
}

// ReportPerformanceWarning downgrades a hybrid session to the low tier.
// The downgrade is one-directional: only Reset lifts it.
func (p *LODPolicy) ReportPerformanceWarning() {
	if p.mode != LODModeHybrid || p.degraded {
		return
	}
	p.degraded = true
	p.revision++
}

// Reset lifts a hybrid degradation
func (p *LODPolicy) Reset() {
	if !p.degraded {
		return
	}
	p.degraded = false
	p.revision++
}

// SetMode switches the policy mode. Leaving manual mode clears the
// forced tier; leaving hybrid mode lifts a degradation.
func (p *LODPolicy) SetMode(mode LODMode) error {
	if !mode.IsValid() {
		return pkgerrors.NewGraphValidationError("lod mode must be manual, auto or hybrid")
	}
	if p.mode == mode {
		return nil
	}
	p.mode = mode
	if mode != LODModeManual {
		p.forcedTier = ""
	}
	if mode != LODModeHybrid {
		p.degraded = false
	}
	p.revision++
	return nil
}

// SetDeviceClass updates the device classification (e.g. from the
// watched settings file)
func (p *LODPolicy) SetDeviceClass(deviceClass DeviceClass) error {
	if !deviceClass.IsValid() {
		return pkgerrors.NewGraphValidationError("device class must be low, medium or high")
	}
	if p.deviceClass == deviceClass {
		return nil
	}
	p.deviceClass = deviceClass
	p.revision++
	return nil
}
