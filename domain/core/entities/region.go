package entities

import (
	"sort"

	"neurotwin-backend/domain/config"
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"
)

// Hemisphere indicates which brain hemisphere a region belongs to
type Hemisphere string

const (
	HemisphereLeft  Hemisphere = "left"
	HemisphereRight Hemisphere = "right"
	HemisphereNone  Hemisphere = ""
)

// IsValid checks if the hemisphere value is one of the known labels
func (h Hemisphere) IsValid() bool {
	switch h {
	case HemisphereLeft, HemisphereRight, HemisphereNone:
		return true
	default:
		return false
	}
}

// Region is a named anatomical/functional brain area. Regions are
// immutable: activity updates return a new Region so a graph version
// computed earlier never observes a change.
type Region struct {
	id          valueobjects.RegionID
	name        string
	position    valueobjects.Position
	baseColor   valueobjects.Color
	activity    valueobjects.ActivityLevel
	active      bool
	connections map[valueobjects.ConnectionID]struct{}
	hemisphere  Hemisphere
	confidence  *float64
}

// RegionOption customizes optional region attributes
type RegionOption func(*Region) error

// WithHemisphere sets the hemisphere label
func WithHemisphere(h Hemisphere) RegionOption {
	return func(r *Region) error {
		if !h.IsValid() {
			return pkgerrors.NewGraphValidationError("hemisphere must be left, right or empty")
		}
		r.hemisphere = h
		return nil
	}
}

// WithConfidence sets the anatomical mapping confidence
func WithConfidence(confidence float64) RegionOption {
	return func(r *Region) error {
		if confidence < 0 || confidence > 1 {
			return pkgerrors.NewRangeError("confidence", confidence)
		}
		c := confidence
		r.confidence = &c
		return nil
	}
}

// NewRegion creates a region with validated attributes. The active flag
// is derived from the activity level using the domain threshold.
func NewRegion(
	id valueobjects.RegionID,
	name string,
	position valueobjects.Position,
	baseColor valueobjects.Color,
	activity valueobjects.ActivityLevel,
	opts ...RegionOption,
) (*Region, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewGraphValidationError("region id is required")
	}
	if name == "" {
		return nil, pkgerrors.NewGraphValidationError("region name is required")
	}

	region := &Region{
		id:          id,
		name:        name,
		position:    position,
		baseColor:   baseColor,
		activity:    activity,
		active:      activity.Exceeds(config.DefaultDomainConfig().ActiveActivityThreshold),
		connections: make(map[valueobjects.ConnectionID]struct{}),
	}

	for _, opt := range opts {
		if err := opt(region); err != nil {
			return nil, err
		}
	}

	return region, nil
}

// ID returns the region's unique identifier
func (r *Region) ID() valueobjects.RegionID {
	return r.id
}

// Name returns the region's display name
func (r *Region) Name() string {
	return r.name
}

// Position returns the region's 3D position
func (r *Region) Position() valueobjects.Position {
	return r.position
}

// BaseColor returns the region's base color
func (r *Region) BaseColor() valueobjects.Color {
	return r.baseColor
}

// ActivityLevel returns the current activity level
func (r *Region) ActivityLevel() valueobjects.ActivityLevel {
	return r.activity
}

// IsActive reports whether the region is currently active
func (r *Region) IsActive() bool {
	return r.active
}

// Hemisphere returns the hemisphere label, empty when unknown
func (r *Region) Hemisphere() Hemisphere {
	return r.hemisphere
}

// Confidence returns the mapping confidence when present
func (r *Region) Confidence() (float64, bool) {
	if r.confidence == nil {
		return 0, false
	}
	return *r.confidence, true
}

// ConnectionIDs returns the ids of connections touching this region,
// sorted for deterministic output
func (r *Region) ConnectionIDs() []valueobjects.ConnectionID {
	ids := make([]valueobjects.ConnectionID, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasConnection checks whether the region references the connection
func (r *Region) HasConnection(id valueobjects.ConnectionID) bool {
	_, ok := r.connections[id]
	return ok
}

// WithConnectionRef returns a copy of the region that also references
// the given connection. Used by the aggregate while wiring a graph.
func (r *Region) WithConnectionRef(id valueobjects.ConnectionID) *Region {
	clone := r.clone()
	clone.connections[id] = struct{}{}
	return clone
}

// WithActivity returns a copy of the region carrying the new activity
// level, with the active flag re-derived from the threshold.
func (r *Region) WithActivity(level valueobjects.ActivityLevel, cfg *config.DomainConfig) *Region {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	clone := r.clone()
	clone.activity = level
	clone.active = level.Exceeds(cfg.ActiveActivityThreshold)
	return clone
}

// Toggled returns a copy of the region with the active flag flipped and
// the activity level snapped to the configured high/low defaults. This
// mirrors a UI convenience, not a measurement.
func (r *Region) Toggled(cfg *config.DomainConfig) *Region {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	clone := r.clone()
	if r.active {
		clone.activity, _ = valueobjects.NewActivityLevel(cfg.ToggleLowActivity)
		clone.active = false
	} else {
		clone.activity, _ = valueobjects.NewActivityLevel(cfg.ToggleHighActivity)
		clone.active = true
	}
	return clone
}

func (r *Region) clone() *Region {
	connections := make(map[valueobjects.ConnectionID]struct{}, len(r.connections))
	for id := range r.connections {
		connections[id] = struct{}{}
	}

	var confidence *float64
	if r.confidence != nil {
		c := *r.confidence
		confidence = &c
	}

	return &Region{
		id:          r.id,
		name:        r.name,
		position:    r.position,
		baseColor:   r.baseColor,
		activity:    r.activity,
		active:      r.active,
		connections: connections,
		hemisphere:  r.hemisphere,
		confidence:  confidence,
	}
}
