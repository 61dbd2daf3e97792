package viewstate

import (
	"sort"

	"neurotwin-backend/domain/core/valueobjects"
)

// SelectionMode describes the selection state machine's current state
type SelectionMode string

const (
	SelectionModeIdle   SelectionMode = "idle"
	SelectionModeSingle SelectionMode = "single"
	SelectionModeMulti  SelectionMode = "multi"
)

// SelectionState tracks which regions the user has selected and which
// the system is transiently highlighting. Highlighting is orthogonal
// to selection. Every operation bumps an internal revision counter
// consumed by the coordinator's render-state memoization.
type SelectionState struct {
	selected    []valueobjects.RegionID
	selectedSet map[valueobjects.RegionID]struct{}
	highlighted map[valueobjects.RegionID]struct{}
	revision    uint64
}

// NewSelectionState creates an empty selection state
func NewSelectionState() *SelectionState {
	return &SelectionState{
		selectedSet: make(map[valueobjects.RegionID]struct{}),
		highlighted: make(map[valueobjects.RegionID]struct{}),
	}
}

// Mode returns the current state of the selection machine
func (s *SelectionState) Mode() SelectionMode {
	switch len(s.selected) {
	case 0:
		return SelectionModeIdle
	case 1:
		return SelectionModeSingle
	default:
		return SelectionModeMulti
	}
}

// Revision returns the mutation counter
func (s *SelectionState) Revision() uint64 {
	return s.revision
}

// Select adds ids to the selection, de-duplicated and order-preserving
// (most recent last). Selecting an id already present does not reorder
// it. Callers are expected to have validated the ids against the
// current graph.
func (s *SelectionState) Select(ids ...valueobjects.RegionID) {
	for _, id := range ids {
		if _, exists := s.selectedSet[id]; exists {
			continue
		}
		s.selectedSet[id] = struct{}{}
		s.selected = append(s.selected, id)
	}
	s.revision++
}

// Deselect removes ids from the selection, preserving the order of the
// remaining entries
func (s *SelectionState) Deselect(ids ...valueobjects.RegionID) {
	removed := false
	for _, id := range ids {
		if _, exists := s.selectedSet[id]; !exists {
			continue
		}
		delete(s.selectedSet, id)
		removed = true
	}
	if removed {
		kept := s.selected[:0]
		for _, id := range s.selected {
			if _, exists := s.selectedSet[id]; exists {
				kept = append(kept, id)
			}
		}
		s.selected = kept
	}
	s.revision++
}

// Highlight replaces the highlight set wholesale. Callers wanting
// additive highlighting must read-modify-write explicitly.
func (s *SelectionState) Highlight(ids ...valueobjects.RegionID) {
	s.highlighted = make(map[valueobjects.RegionID]struct{}, len(ids))
	for _, id := range ids {
		s.highlighted[id] = struct{}{}
	}
	s.revision++
}

// ClearHighlights empties the highlight set
func (s *SelectionState) ClearHighlights() {
	s.highlighted = make(map[valueobjects.RegionID]struct{})
	s.revision++
}

// Reset clears both sets. The coordinator invokes this whenever the
// graph is replaced.
func (s *SelectionState) Reset() {
	s.selected = nil
	s.selectedSet = make(map[valueobjects.RegionID]struct{})
	s.highlighted = make(map[valueobjects.RegionID]struct{})
	s.revision++
}

// SelectedIDs returns the selection in insertion order
func (s *SelectionState) SelectedIDs() []valueobjects.RegionID {
	return append([]valueobjects.RegionID(nil), s.selected...)
}

// HighlightedIDs returns the highlight set sorted by id
func (s *SelectionState) HighlightedIDs() []valueobjects.RegionID {
	ids := make([]valueobjects.RegionID, 0, len(s.highlighted))
	for id := range s.highlighted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSelected checks membership in the selection
func (s *SelectionState) IsSelected(id valueobjects.RegionID) bool {
	_, exists := s.selectedSet[id]
	return exists
}

// IsHighlighted checks membership in the highlight set
func (s *SelectionState) IsHighlighted(id valueobjects.RegionID) bool {
	_, exists := s.highlighted[id]
	return exists
}
