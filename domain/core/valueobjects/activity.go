package valueobjects

import (
	pkgerrors "neurotwin-backend/pkg/errors"
)

// ActivityLevel is a bounded scalar in [0, 1] describing how active a
// region or connection currently is.
type ActivityLevel struct {
	value float64
}

// NewActivityLevel creates an ActivityLevel, rejecting out-of-range values
func NewActivityLevel(value float64) (ActivityLevel, error) {
	if value < 0 || value > 1 || value != value { // NaN check
		return ActivityLevel{}, pkgerrors.NewRangeError("activityLevel", value)
	}
	return ActivityLevel{value: value}, nil
}

// Value returns the raw level
func (a ActivityLevel) Value() float64 {
	return a.value
}

// Exceeds reports whether the level is strictly above the threshold
func (a ActivityLevel) Exceeds(threshold float64) bool {
	return a.value > threshold
}

// Equals checks two levels for equality
func (a ActivityLevel) Equals(other ActivityLevel) bool {
	return a.value == other.value
}
