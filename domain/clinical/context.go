// Package clinical holds the read-only clinical reference data for the
// active patient session: symptom and diagnosis activation mappings and
// treatment-effect predictions. The data is supplied out-of-band by the
// clinical-context collaborator and parsed at this boundary; malformed
// entries are skipped so clinical overlays degrade gracefully instead
// of blocking visualization.
package clinical

import (
	"fmt"

	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"
)

// ResponseCategory labels a predicted treatment outcome
type ResponseCategory string

const (
	ResponseCategoryRemission       ResponseCategory = "remission"
	ResponseCategoryResponse        ResponseCategory = "response"
	ResponseCategoryPartialResponse ResponseCategory = "partial_response"
	ResponseCategoryNoResponse      ResponseCategory = "no_response"
)

// ActivationPattern links a set of regions to a relevance weight
type ActivationPattern struct {
	RegionIDs []valueobjects.RegionID
	Weight    float64
}

// Mapping ties a clinical subject (a symptom or a diagnosis) to the
// regions it activates
type Mapping struct {
	SubjectID   string
	SubjectName string
	Patterns    []ActivationPattern
}

// Mechanism describes one pathway through which a treatment acts
type Mechanism struct {
	PathwayName     string
	RelevantRegions []valueobjects.RegionID
	ConfidenceLevel string
}

// TreatmentEffect is a predicted treatment response for the patient
type TreatmentEffect struct {
	TreatmentID         string
	Mechanisms          []Mechanism
	ResponseProbability float64
	ResponseCategory    ResponseCategory
}

// Context is the snapshot of clinical reference data for one patient
// session. It is read-only once parsed.
type Context struct {
	SymptomMappings   []Mapping
	DiagnosisMappings []Mapping
	TreatmentEffects  []TreatmentEffect
	ActiveSymptoms    []string
	ActiveDiagnoses   []string
}

// ContextPayload is the wire shape of the clinical snapshot
type ContextPayload struct {
	SymptomMappings   []MappingPayload   `json:"symptomMappings"`
	DiagnosisMappings []MappingPayload   `json:"diagnosisMappings"`
	TreatmentEffects  []TreatmentPayload `json:"treatmentEffects"`
	ActiveSymptoms    []string           `json:"activeSymptoms"`
	ActiveDiagnoses   []string           `json:"activeDiagnoses"`
}

// MappingPayload is the wire shape of one symptom/diagnosis mapping
type MappingPayload struct {
	SubjectID   string           `json:"subjectId"`
	SubjectName string           `json:"subjectName"`
	Patterns    []PatternPayload `json:"activationPatterns"`
}

// PatternPayload is the wire shape of one activation pattern
type PatternPayload struct {
	RegionIDs []string `json:"regionIds"`
	Weight    float64  `json:"weight"`
}

// TreatmentPayload is the wire shape of one treatment effect
type TreatmentPayload struct {
	TreatmentID         string             `json:"treatmentId"`
	Mechanisms          []MechanismPayload `json:"mechanisms"`
	ResponseProbability float64            `json:"responseProbability"`
	ResponseCategory    string             `json:"responseCategory"`
}

// MechanismPayload is the wire shape of one treatment mechanism
type MechanismPayload struct {
	PathwayName     string   `json:"pathwayName"`
	RelevantRegions []string `json:"relevantRegions"`
	ConfidenceLevel string   `json:"confidenceLevel"`
}

// ParseContext converts a wire payload into a typed Context. Entries
// that cannot be mapped (missing subject id, no usable patterns,
// out-of-range probabilities) are skipped and reported as
// MappingDataError values; they never fail the parse as a whole.
func ParseContext(payload ContextPayload) (*Context, []error) {
	var skipped []error

	ctx := &Context{
		ActiveSymptoms:  append([]string(nil), payload.ActiveSymptoms...),
		ActiveDiagnoses: append([]string(nil), payload.ActiveDiagnoses...),
	}

	for i, mp := range payload.SymptomMappings {
		mapping, err := parseMapping(mp, fmt.Sprintf("symptomMappings[%d]", i))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		ctx.SymptomMappings = append(ctx.SymptomMappings, mapping)
	}

	for i, mp := range payload.DiagnosisMappings {
		mapping, err := parseMapping(mp, fmt.Sprintf("diagnosisMappings[%d]", i))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		ctx.DiagnosisMappings = append(ctx.DiagnosisMappings, mapping)
	}

	for i, tp := range payload.TreatmentEffects {
		effect, err := parseTreatment(tp, fmt.Sprintf("treatmentEffects[%d]", i))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		ctx.TreatmentEffects = append(ctx.TreatmentEffects, effect)
	}

	return ctx, skipped
}

func parseMapping(payload MappingPayload, path string) (Mapping, error) {
	if payload.SubjectID == "" {
		return Mapping{}, pkgerrors.NewMappingDataError(path + ": missing subjectId")
	}

	mapping := Mapping{
		SubjectID:   payload.SubjectID,
		SubjectName: payload.SubjectName,
	}

	for _, pp := range payload.Patterns {
		if len(pp.RegionIDs) == 0 {
			continue
		}
		if pp.Weight < 0 || pp.Weight > 1 {
			continue
		}
		pattern := ActivationPattern{Weight: pp.Weight}
		for _, raw := range pp.RegionIDs {
			id, err := valueobjects.NewRegionID(raw)
			if err != nil {
				continue
			}
			pattern.RegionIDs = append(pattern.RegionIDs, id)
		}
		if len(pattern.RegionIDs) > 0 {
			mapping.Patterns = append(mapping.Patterns, pattern)
		}
	}

	if len(mapping.Patterns) == 0 {
		return Mapping{}, pkgerrors.NewMappingDataError(path + ": no usable activation patterns")
	}

	return mapping, nil
}

func parseTreatment(payload TreatmentPayload, path string) (TreatmentEffect, error) {
	if payload.TreatmentID == "" {
		return TreatmentEffect{}, pkgerrors.NewMappingDataError(path + ": missing treatmentId")
	}
	if payload.ResponseProbability < 0 || payload.ResponseProbability > 1 {
		return TreatmentEffect{}, pkgerrors.NewMappingDataError(path + ": responseProbability out of range")
	}

	effect := TreatmentEffect{
		TreatmentID:         payload.TreatmentID,
		ResponseProbability: payload.ResponseProbability,
		ResponseCategory:    ResponseCategory(payload.ResponseCategory),
	}

	for _, mp := range payload.Mechanisms {
		if mp.PathwayName == "" || len(mp.RelevantRegions) == 0 {
			continue
		}
		mechanism := Mechanism{
			PathwayName:     mp.PathwayName,
			ConfidenceLevel: mp.ConfidenceLevel,
		}
		for _, raw := range mp.RelevantRegions {
			id, err := valueobjects.NewRegionID(raw)
			if err != nil {
				continue
			}
			mechanism.RelevantRegions = append(mechanism.RelevantRegions, id)
		}
		if len(mechanism.RelevantRegions) > 0 {
			effect.Mechanisms = append(effect.Mechanisms, mechanism)
		}
	}

	if len(effect.Mechanisms) == 0 {
		return TreatmentEffect{}, pkgerrors.NewMappingDataError(path + ": no usable mechanisms")
	}

	return effect, nil
}
