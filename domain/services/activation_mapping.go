// Package services contains stateless domain services. The activation
// mapping engine projects clinical concepts (symptoms, diagnoses,
// treatment mechanisms) onto brain regions; every function here is
// pure so the caller controls when the O(regions x mappings) work runs.
package services

import (
	"neurotwin-backend/domain/clinical"
	"neurotwin-backend/domain/core/valueobjects"
)

// Relevance is one clinical subject found relevant to a region. Weight
// is the strongest matching activation pattern's weight.
type Relevance struct {
	SubjectID   string  `json:"subjectId"`
	SubjectName string  `json:"subjectName"`
	Weight      float64 `json:"weight"`
}

// ImpactLevel is the presentation bucket for a predicted treatment
// response. It is a display heuristic, not a clinical judgment.
type ImpactLevel string

const (
	ImpactPositive ImpactLevel = "positive"
	ImpactModerate ImpactLevel = "moderate"
	ImpactMinimal  ImpactLevel = "minimal"
)

// TreatmentImpact is a treatment whose mechanisms act on a region
type TreatmentImpact struct {
	TreatmentID         string               `json:"treatmentId"`
	Mechanisms          []clinical.Mechanism `json:"mechanisms"`
	ResponseProbability float64              `json:"responseProbability"`
	ExpectedImpact      ImpactLevel          `json:"expectedImpact"`
}

// MapSymptomsToRegion returns the active symptoms whose activation
// patterns include the region. Result order follows mapping input
// order (stable, not sorted by weight) for reproducibility.
func MapSymptomsToRegion(regionID valueobjects.RegionID, mappings []clinical.Mapping, activeSymptoms []string) []Relevance {
	return mapSubjectsToRegion(regionID, mappings, activeSymptoms)
}

// MapDiagnosesToRegion is the diagnosis counterpart of
// MapSymptomsToRegion.
func MapDiagnosesToRegion(regionID valueobjects.RegionID, mappings []clinical.Mapping, activeDiagnoses []string) []Relevance {
	return mapSubjectsToRegion(regionID, mappings, activeDiagnoses)
}

func mapSubjectsToRegion(regionID valueobjects.RegionID, mappings []clinical.Mapping, activeSubjects []string) []Relevance {
	active := make(map[string]struct{}, len(activeSubjects))
	for _, subject := range activeSubjects {
		active[subject] = struct{}{}
	}

	var matches []Relevance
	for _, mapping := range mappings {
		// Defensive: ParseContext drops these, but the engine must not
		// blow up on a mapping assembled elsewhere.
		if mapping.SubjectID == "" || len(mapping.Patterns) == 0 {
			continue
		}
		if _, isActive := active[mapping.SubjectID]; !isActive {
			continue
		}

		weight, matched := strongestPatternWeight(regionID, mapping.Patterns)
		if !matched {
			continue
		}

		matches = append(matches, Relevance{
			SubjectID:   mapping.SubjectID,
			SubjectName: mapping.SubjectName,
			Weight:      weight,
		})
	}
	return matches
}

func strongestPatternWeight(regionID valueobjects.RegionID, patterns []clinical.ActivationPattern) (float64, bool) {
	var weight float64
	matched := false
	for _, pattern := range patterns {
		if !patternContains(pattern, regionID) {
			continue
		}
		if !matched || pattern.Weight > weight {
			weight = pattern.Weight
		}
		matched = true
	}
	return weight, matched
}

func patternContains(pattern clinical.ActivationPattern, regionID valueobjects.RegionID) bool {
	for _, id := range pattern.RegionIDs {
		if id.Equals(regionID) {
			return true
		}
	}
	return false
}

// MapTreatmentEffects returns the treatments with at least one
// mechanism acting on the region, each carrying only its matching
// mechanisms. Treatments with no matching mechanism are skipped
// entirely.
func MapTreatmentEffects(regionID valueobjects.RegionID, effects []clinical.TreatmentEffect) []TreatmentImpact {
	var impacts []TreatmentImpact
	for _, effect := range effects {
		if effect.TreatmentID == "" {
			continue
		}

		var mechanisms []clinical.Mechanism
		for _, mechanism := range effect.Mechanisms {
			if mechanismTargets(mechanism, regionID) {
				mechanisms = append(mechanisms, mechanism)
			}
		}
		if len(mechanisms) == 0 {
			continue
		}

		impacts = append(impacts, TreatmentImpact{
			TreatmentID:         effect.TreatmentID,
			Mechanisms:          mechanisms,
			ResponseProbability: effect.ResponseProbability,
			ExpectedImpact:      ClassifyImpact(effect.ResponseCategory),
		})
	}
	return impacts
}

func mechanismTargets(mechanism clinical.Mechanism, regionID valueobjects.RegionID) bool {
	for _, id := range mechanism.RelevantRegions {
		if id.Equals(regionID) {
			return true
		}
	}
	return false
}

// ClassifyImpact buckets a response category into the three-way
// presentation scale: response/remission categories are positive,
// partial response is moderate, everything else is minimal.
func ClassifyImpact(category clinical.ResponseCategory) ImpactLevel {
	switch category {
	case clinical.ResponseCategoryResponse, clinical.ResponseCategoryRemission:
		return ImpactPositive
	case clinical.ResponseCategoryPartialResponse:
		return ImpactModerate
	default:
		return ImpactMinimal
	}
}
