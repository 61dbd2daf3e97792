// Package viewstate coordinates the independently-updating inputs of
// the neural digital twin (the anatomical graph, the activity feed,
// the clinical context, user selection, and the level-of-detail
// policy) into one internally-consistent render state per update.
package viewstate

import (
	"time"

	"neurotwin-backend/domain/clinical"
	"neurotwin-backend/domain/config"
	"neurotwin-backend/domain/core/aggregates"
	"neurotwin-backend/domain/core/entities"
	"neurotwin-backend/domain/core/valueobjects"
	"neurotwin-backend/domain/services"
	pkgerrors "neurotwin-backend/pkg/errors"
	"neurotwin-backend/pkg/observability"

	"go.uber.org/zap"
)

// memoKey is the dirty-flag set compared on every GetRenderState call.
// Recomputation happens only when one of the tracked inputs moved.
type memoKey struct {
	graphGeneration uint64
	graphVersion    int
	selectionRev    uint64
	lodRev          uint64
	clinicalRev     uint64
}

// Coordinator is the visualization state orchestrator. It owns the
// current BrainGraph and SelectionState, holds references to the
// clinical context snapshot, and produces memoized render states.
//
// The coordinator is designed for a single-threaded, event-driven
// host: all operations are synchronous and run-to-completion, and the
// host serializes them. Every mutating operation either fully succeeds
// (new consistent version) or fully fails (prior state retained).
type Coordinator struct {
	cfg       *config.DomainConfig
	logger    *zap.Logger
	metrics   *observability.VisualizationMetrics
	graph     *aggregates.BrainGraph
	selection *SelectionState
	lod       *LODPolicy
	clinical  *clinical.Context

	// graphGeneration distinguishes graphs across ingests, since a
	// freshly ingested graph restarts its own version at 1.
	graphGeneration uint64
	clinicalRev     uint64
	lastRequestID   uint64

	memoValid  bool
	memoKey    memoKey
	memoState  *RenderState
	recomputes uint64
}

// NewCoordinator creates a coordinator with no graph ingested yet
func NewCoordinator(
	cfg *config.DomainConfig,
	lod *LODPolicy,
	logger *zap.Logger,
	metrics *observability.VisualizationMetrics,
) *Coordinator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if lod == nil {
		lod, _ = NewLODPolicy(DeviceClassMedium, LODModeAuto)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		selection: NewSelectionState(),
		lod:       lod,
	}
}

// HasGraph reports whether a graph has been ingested
func (c *Coordinator) HasGraph() bool {
	return c.graph != nil
}

// Graph returns the current graph, nil before the first ingest
func (c *Coordinator) Graph() *aggregates.BrainGraph {
	return c.graph
}

// LOD returns the coordinator's level-of-detail policy
func (c *Coordinator) LOD() *LODPolicy {
	return c.lod
}

// Recomputes returns how many times the render state has been rebuilt
func (c *Coordinator) Recomputes() uint64 {
	return c.recomputes
}

// IngestGraph replaces the current graph with a newer one. The fetch
// collaborator tags each response with a monotonically increasing
// request id; a result older than the newest one seen is discarded
// (last-write-wins by request id, not arrival order). A graph failing
// the referential invariant is rejected outright and the prior graph
// is retained; a visualization built on a broken graph would show
// misleading connections.
func (c *Coordinator) IngestGraph(requestID uint64, graph *aggregates.BrainGraph) error {
	if requestID <= c.lastRequestID {
		c.logger.Info("Discarding stale graph fetch result",
			zap.Uint64("requestID", requestID),
			zap.Uint64("newestRequestID", c.lastRequestID),
		)
		if c.metrics != nil {
			c.metrics.IngestRejections.Inc()
		}
		return nil
	}

	if graph == nil {
		return pkgerrors.NewGraphValidationError("graph cannot be nil")
	}
	if err := graph.Validate(); err != nil {
		if c.metrics != nil {
			c.metrics.IngestRejections.Inc()
		}
		return err
	}

	c.lastRequestID = requestID
	c.graph = graph
	c.graphGeneration++
	c.selection.Reset()

	if c.metrics != nil {
		c.metrics.GraphIngests.Inc()
	}
	c.logger.Info("Graph ingested",
		zap.String("graphID", graph.ID().String()),
		zap.Uint64("requestID", requestID),
		zap.Int("regions", graph.RegionCount()),
		zap.Int("connections", graph.ConnectionCount()),
	)

	return nil
}

// ApplyActivityDelta sets one region's activity level, producing a new
// graph version by copy-on-write. An out-of-range level is a hard
// failure with state unchanged; an unknown region id (stale ids from
// async callbacks are expected) is logged and ignored so the UI stays
// resilient.
func (c *Coordinator) ApplyActivityDelta(regionID string, level float64) error {
	if c.graph == nil {
		return pkgerrors.NewNotFoundError("graph")
	}

	activity, err := valueobjects.NewActivityLevel(level)
	if err != nil {
		return err
	}

	id, err := valueobjects.NewRegionID(regionID)
	if err != nil {
		return err
	}

	next, err := c.graph.WithRegionActivity(id, activity)
	if err != nil {
		if pkgerrors.IsUnknownRegion(err) {
			c.logUnknownRegion("activity delta", regionID)
			return nil
		}
		return err
	}

	c.graph = next
	if c.metrics != nil {
		c.metrics.ActivityDeltas.Inc()
	}
	return nil
}

// ApplyActivityDeltas applies a batch of activity updates as a single
// new graph version. The whole batch is range-validated up front so a
// bad entry leaves the graph untouched; unknown regions are dropped
// from the batch rather than failing it.
func (c *Coordinator) ApplyActivityDeltas(deltas map[string]float64) error {
	if c.graph == nil {
		return pkgerrors.NewNotFoundError("graph")
	}
	if len(deltas) == 0 {
		return nil
	}

	validated := make(map[valueobjects.RegionID]valueobjects.ActivityLevel, len(deltas))
	for rawID, level := range deltas {
		activity, err := valueobjects.NewActivityLevel(level)
		if err != nil {
			return err
		}
		id, err := valueobjects.NewRegionID(rawID)
		if err != nil {
			return err
		}
		if !c.graph.HasRegion(id) {
			c.logUnknownRegion("activity delta", rawID)
			continue
		}
		validated[id] = activity
	}

	if len(validated) == 0 {
		return nil
	}

	next, err := c.graph.WithActivityDeltas(validated)
	if err != nil {
		return err
	}

	c.graph = next
	if c.metrics != nil {
		c.metrics.ActivityDeltas.Add(float64(len(validated)))
	}
	return nil
}

// ToggleRegionActive flips a region's active flag, snapping its
// activity to the configured high/low defaults
func (c *Coordinator) ToggleRegionActive(regionID string) error {
	if c.graph == nil {
		return pkgerrors.NewNotFoundError("graph")
	}

	id, err := valueobjects.NewRegionID(regionID)
	if err != nil {
		return err
	}

	next, err := c.graph.WithRegionToggled(id)
	if err != nil {
		if pkgerrors.IsUnknownRegion(err) {
			c.logUnknownRegion("toggle", regionID)
			return nil
		}
		return err
	}

	c.graph = next
	return nil
}

// Select adds regions to the selection. Ids absent from the current
// graph are dropped before delegation.
func (c *Coordinator) Select(regionIDs ...string) {
	ids := c.knownRegionIDs("select", regionIDs)
	c.selection.Select(ids...)
}

// Deselect removes regions from the selection
func (c *Coordinator) Deselect(regionIDs ...string) {
	ids := c.knownRegionIDs("deselect", regionIDs)
	c.selection.Deselect(ids...)
}

// Highlight replaces the highlight set wholesale
func (c *Coordinator) Highlight(regionIDs ...string) {
	ids := c.knownRegionIDs("highlight", regionIDs)
	c.selection.Highlight(ids...)
}

// ClearHighlights empties the highlight set
func (c *Coordinator) ClearHighlights() {
	c.selection.ClearHighlights()
}

// Selection exposes the selection snapshot for callers that need it
// outside a full render state
func (c *Coordinator) Selection() SelectionView {
	return c.selectionView()
}

// SetDetailOverride forces a manual detail tier; a nil tier clears the
// override and returns the policy to auto mode.
func (c *Coordinator) SetDetailOverride(tier *DetailTier) error {
	if tier == nil {
		c.lod.ClearOverride()
		return nil
	}
	return c.lod.ForceTier(*tier)
}

// ReportPerformanceWarning forwards a frame-budget warning to the LOD
// policy (one-directional hybrid downgrade)
func (c *Coordinator) ReportPerformanceWarning() {
	c.lod.ReportPerformanceWarning()
}

// SetClinicalContext replaces the clinical reference snapshot. Skipped
// (malformed) entries were already filtered by the parser; they are
// counted here for visibility.
func (c *Coordinator) SetClinicalContext(ctx *clinical.Context, skipped []error) {
	c.clinical = ctx
	c.clinicalRev++
	if c.metrics != nil && len(skipped) > 0 {
		c.metrics.ClinicalSkips.Add(float64(len(skipped)))
	}
	for _, err := range skipped {
		c.logger.Warn("Skipped malformed clinical mapping entry", zap.Error(err))
	}
}

// GetRenderState returns the current render-ready snapshot. It is
// memoized: the clinical-overlay derivation is O(regions x mappings)
// and must not re-run when no tracked input changed, because hosts
// typically poll once per animation tick.
func (c *Coordinator) GetRenderState() (*RenderState, error) {
	if c.graph == nil {
		return nil, pkgerrors.NewNotFoundError("graph")
	}

	key := memoKey{
		graphGeneration: c.graphGeneration,
		graphVersion:    c.graph.Version(),
		selectionRev:    c.selection.Revision(),
		lodRev:          c.lod.Revision(),
		clinicalRev:     c.clinicalRev,
	}

	if c.memoValid && key == c.memoKey {
		if c.metrics != nil {
			c.metrics.RenderMemoHits.Inc()
		}
		return c.memoState, nil
	}

	state := c.computeRenderState()
	c.memoKey = key
	c.memoState = state
	c.memoValid = true
	c.recomputes++
	if c.metrics != nil {
		c.metrics.RenderRecomputes.Inc()
	}
	return state, nil
}

func (c *Coordinator) computeRenderState() *RenderState {
	tier := c.lod.Tier(c.graph.RegionCount(), c.cfg)

	state := &RenderState{
		GraphID:      c.graph.ID().String(),
		GraphVersion: c.graph.Version(),
		PatientID:    c.graph.PatientID(),
		Selection:    c.selectionView(),
		DetailTier:   tier,
		Detail:       c.lod.Descriptor(tier, c.graph.RegionCount(), c.cfg),
		ComputedAt:   time.Now(),
	}

	regions := c.graph.Regions()
	state.Regions = make([]RegionView, 0, len(regions))
	for _, region := range regions {
		state.Regions = append(state.Regions, c.regionView(region))
	}

	connections := c.graph.Connections()
	state.Connections = make([]ConnectionView, 0, len(connections))
	for _, connection := range connections {
		state.Connections = append(state.Connections, connectionView(connection))
	}

	// Clinical overlays are derived only for selected regions, in
	// selection order.
	for _, id := range c.selection.SelectedIDs() {
		state.Overlays = append(state.Overlays, c.overlayFor(id))
	}

	return state
}

func (c *Coordinator) overlayFor(regionID valueobjects.RegionID) RegionOverlay {
	overlay := RegionOverlay{RegionID: regionID.String()}
	if c.clinical == nil {
		return overlay
	}
	overlay.RelatedSymptoms = services.MapSymptomsToRegion(regionID, c.clinical.SymptomMappings, c.clinical.ActiveSymptoms)
	overlay.RelatedDiagnoses = services.MapDiagnosesToRegion(regionID, c.clinical.DiagnosisMappings, c.clinical.ActiveDiagnoses)
	overlay.TreatmentEffects = services.MapTreatmentEffects(regionID, c.clinical.TreatmentEffects)
	return overlay
}

func (c *Coordinator) regionView(region *entities.Region) RegionView {
	position := region.Position()
	view := RegionView{
		ID:            region.ID().String(),
		Name:          region.Name(),
		Position:      Vector3{X: position.X(), Y: position.Y(), Z: position.Z()},
		BaseColor:     region.BaseColor().String(),
		ActivityLevel: region.ActivityLevel().Value(),
		IsActive:      region.IsActive(),
		Hemisphere:    string(region.Hemisphere()),
		Selected:      c.selection.IsSelected(region.ID()),
		Highlighted:   c.selection.IsHighlighted(region.ID()),
	}
	if confidence, ok := region.Confidence(); ok {
		view.Confidence = &confidence
	}
	for _, connectionID := range region.ConnectionIDs() {
		view.ConnectionIDs = append(view.ConnectionIDs, connectionID.String())
	}
	return view
}

func connectionView(connection *entities.Connection) ConnectionView {
	view := ConnectionView{
		ID:       connection.ID().String(),
		SourceID: connection.SourceID().String(),
		TargetID: connection.TargetID().String(),
		Strength: connection.Strength(),
		Type:     connection.Type().String(),
	}
	if activity, ok := connection.ActivityLevel(); ok {
		value := activity.Value()
		view.ActivityLevel = &value
	}
	return view
}

func (c *Coordinator) selectionView() SelectionView {
	view := SelectionView{
		Mode:           c.selection.Mode(),
		SelectedIDs:    []string{},
		HighlightedIDs: []string{},
	}
	for _, id := range c.selection.SelectedIDs() {
		view.SelectedIDs = append(view.SelectedIDs, id.String())
	}
	for _, id := range c.selection.HighlightedIDs() {
		view.HighlightedIDs = append(view.HighlightedIDs, id.String())
	}
	return view
}

func (c *Coordinator) knownRegionIDs(operation string, rawIDs []string) []valueobjects.RegionID {
	ids := make([]valueobjects.RegionID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := valueobjects.NewRegionID(raw)
		if err != nil {
			continue
		}
		if c.graph == nil || !c.graph.HasRegion(id) {
			c.logUnknownRegion(operation, raw)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Coordinator) logUnknownRegion(operation, regionID string) {
	if c.metrics != nil {
		c.metrics.UnknownRegionOps.Inc()
	}
	c.logger.Warn("Ignoring operation on unknown region",
		zap.String("operation", operation),
		zap.String("regionID", regionID),
	)
}
