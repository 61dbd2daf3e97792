package viewstate

import (
	"time"

	"neurotwin-backend/domain/services"
)

// Vector3 is the wire shape of a 3D position
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RegionView is the render-ready projection of one region
type RegionView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Position      Vector3  `json:"position"`
	BaseColor     string   `json:"baseColor"`
	ActivityLevel float64  `json:"activityLevel"`
	IsActive      bool     `json:"isActive"`
	Hemisphere    string   `json:"hemisphere,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	ConnectionIDs []string `json:"connectionIds"`
	Selected      bool     `json:"selected"`
	Highlighted   bool     `json:"highlighted"`
}

// ConnectionView is the render-ready projection of one connection
type ConnectionView struct {
	ID            string   `json:"id"`
	SourceID      string   `json:"sourceId"`
	TargetID      string   `json:"targetId"`
	Strength      float64  `json:"strength"`
	Type          string   `json:"type"`
	ActivityLevel *float64 `json:"activityLevel,omitempty"`
}

// SelectionView is the snapshot of the selection state
type SelectionView struct {
	Mode           SelectionMode `json:"mode"`
	SelectedIDs    []string      `json:"selectedIds"`
	HighlightedIDs []string      `json:"highlightedIds"`
}

// RegionOverlay carries the clinical context for one selected region
type RegionOverlay struct {
	RegionID         string                     `json:"regionId"`
	RelatedSymptoms  []services.Relevance       `json:"relatedSymptoms"`
	RelatedDiagnoses []services.Relevance       `json:"relatedDiagnoses"`
	TreatmentEffects []services.TreatmentImpact `json:"treatmentEffects"`
}

// RenderState is the single consistent snapshot handed to the rendering
// surface. Consumers must treat it as immutable per version and diff
// against the previous one themselves for incremental updates.
type RenderState struct {
	GraphID      string           `json:"graphId"`
	GraphVersion int              `json:"graphVersion"`
	PatientID    string           `json:"patientId,omitempty"`
	Regions      []RegionView     `json:"regions"`
	Connections  []ConnectionView `json:"connections"`
	Selection    SelectionView    `json:"selection"`
	DetailTier   DetailTier       `json:"detailTier"`
	Detail       DetailDescriptor `json:"detail"`
	Overlays     []RegionOverlay  `json:"clinicalOverlays"`
	ComputedAt   time.Time        `json:"computedAt"`
}
