package valueobjects

import (
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/google/uuid"
)

// RegionID identifies a brain region within a graph
type RegionID string

// NewRegionID creates a RegionID from a string with validation
func NewRegionID(id string) (RegionID, error) {
	if id == "" {
		return "", pkgerrors.NewGraphValidationError("region id cannot be empty")
	}
	return RegionID(id), nil
}

// String returns the string representation
func (id RegionID) String() string {
	return string(id)
}

// IsZero checks whether the id is unset
func (id RegionID) IsZero() bool {
	return id == ""
}

// Equals checks two region ids for equality
func (id RegionID) Equals(other RegionID) bool {
	return id == other
}

// ConnectionID identifies a connection between two regions
type ConnectionID string

// NewConnectionID creates a ConnectionID from a string with validation
func NewConnectionID(id string) (ConnectionID, error) {
	if id == "" {
		return "", pkgerrors.NewGraphValidationError("connection id cannot be empty")
	}
	return ConnectionID(id), nil
}

// String returns the string representation
func (id ConnectionID) String() string {
	return string(id)
}

// IsZero checks whether the id is unset
func (id ConnectionID) IsZero() bool {
	return id == ""
}

// GraphID identifies a brain graph snapshot
type GraphID string

// NewGraphID creates a new random GraphID
func NewGraphID() GraphID {
	return GraphID(uuid.New().String())
}

// GraphIDFromString creates a GraphID from an external id, generating
// one when the payload carries none
func GraphIDFromString(id string) GraphID {
	if id == "" {
		return NewGraphID()
	}
	return GraphID(id)
}

// String returns the string representation
func (id GraphID) String() string {
	return string(id)
}
