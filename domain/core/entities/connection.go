package entities

import (
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"
)

// ConnectionType represents the kind of relation between two regions
type ConnectionType string

const (
	// ConnectionTypeExcitatory increases downstream activity
	ConnectionTypeExcitatory ConnectionType = "excitatory"

	// ConnectionTypeInhibitory suppresses downstream activity
	ConnectionTypeInhibitory ConnectionType = "inhibitory"

	// ConnectionTypeBidirectional carries influence both ways
	ConnectionTypeBidirectional ConnectionType = "bidirectional"

	// ConnectionTypeModulatory adjusts the gain of other connections
	ConnectionTypeModulatory ConnectionType = "modulatory"
)

// IsValid checks if the connection type is valid
func (t ConnectionType) IsValid() bool {
	switch t {
	case ConnectionTypeExcitatory, ConnectionTypeInhibitory,
		ConnectionTypeBidirectional, ConnectionTypeModulatory:
		return true
	default:
		return false
	}
}

// String returns the string representation of the connection type
func (t ConnectionType) String() string {
	return string(t)
}

// Connection is a relation between two regions with a strength and a
// type. Like Region it is immutable once constructed.
type Connection struct {
	id       valueobjects.ConnectionID
	sourceID valueobjects.RegionID
	targetID valueobjects.RegionID
	strength float64
	ctype    ConnectionType
	activity *valueobjects.ActivityLevel
}

// NewConnection creates a connection with validated attributes
func NewConnection(
	id valueobjects.ConnectionID,
	sourceID, targetID valueobjects.RegionID,
	strength float64,
	ctype ConnectionType,
	activity *valueobjects.ActivityLevel,
) (*Connection, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewGraphValidationError("connection id is required")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewGraphValidationError("connection endpoints are required")
	}
	if strength < 0 || strength > 1 {
		return nil, pkgerrors.NewRangeError("strength", strength)
	}
	if !ctype.IsValid() {
		return nil, pkgerrors.NewGraphValidationError("connection type must be excitatory, inhibitory, bidirectional or modulatory")
	}

	return &Connection{
		id:       id,
		sourceID: sourceID,
		targetID: targetID,
		strength: strength,
		ctype:    ctype,
		activity: activity,
	}, nil
}

// ID returns the connection's unique identifier
func (c *Connection) ID() valueobjects.ConnectionID {
	return c.id
}

// SourceID returns the source region id
func (c *Connection) SourceID() valueobjects.RegionID {
	return c.sourceID
}

// TargetID returns the target region id
func (c *Connection) TargetID() valueobjects.RegionID {
	return c.targetID
}

// Strength returns the connection strength in [0, 1]
func (c *Connection) Strength() float64 {
	return c.strength
}

// Type returns the connection type
func (c *Connection) Type() ConnectionType {
	return c.ctype
}

// ActivityLevel returns the optional live activity level
func (c *Connection) ActivityLevel() (valueobjects.ActivityLevel, bool) {
	if c.activity == nil {
		return valueobjects.ActivityLevel{}, false
	}
	return *c.activity, true
}

// IsBidirectional reports whether influence flows both ways
func (c *Connection) IsBidirectional() bool {
	return c.ctype == ConnectionTypeBidirectional
}

// Involves checks whether the connection touches the region on either end
func (c *Connection) Involves(regionID valueobjects.RegionID) bool {
	return c.sourceID.Equals(regionID) || c.targetID.Equals(regionID)
}
