package valueobjects

import (
	"regexp"
	"strings"

	pkgerrors "neurotwin-backend/pkg/errors"
)

// DefaultRegionColor is used when a payload carries no base color.
const DefaultRegionColor = Color("#8a8a8a")

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Color is a hex RGB color string ("#rrggbb")
type Color string

// NewColor creates a Color with validation, defaulting when empty
func NewColor(value string) (Color, error) {
	if value == "" {
		return DefaultRegionColor, nil
	}
	if !hexColorPattern.MatchString(value) {
		return "", pkgerrors.NewGraphValidationError("color must be a #rrggbb hex string")
	}
	return Color(strings.ToLower(value)), nil
}

// String returns the string representation
func (c Color) String() string {
	return string(c)
}
