package viewstate

import (
	"testing"
	"time"

	"neurotwin-backend/domain/clinical"
	"neurotwin-backend/domain/config"
	"neurotwin-backend/domain/core/aggregates"
	"neurotwin-backend/domain/core/entities"
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildRegion(t *testing.T, id string, activity float64) *entities.Region {
	t.Helper()

	position, err := valueobjects.NewPosition3D(0, 0, 0)
	require.NoError(t, err)
	color, err := valueobjects.NewColor("")
	require.NoError(t, err)
	level, err := valueobjects.NewActivityLevel(activity)
	require.NoError(t, err)

	region, err := entities.NewRegion(valueobjects.RegionID(id), "Region "+id, position, color, level)
	require.NoError(t, err)
	return region
}

func buildConnection(t *testing.T, id, source, target string) *entities.Connection {
	t.Helper()

	conn, err := entities.NewConnection(
		valueobjects.ConnectionID(id),
		valueobjects.RegionID(source),
		valueobjects.RegionID(target),
		0.6,
		entities.ConnectionTypeExcitatory,
		nil,
	)
	require.NoError(t, err)
	return conn
}

func buildGraph(t *testing.T, graphID string) *aggregates.BrainGraph {
	t.Helper()

	graph, err := aggregates.NewBrainGraph(
		valueobjects.GraphID(graphID),
		"patient-1",
		time.Now(),
		[]*entities.Region{
			buildRegion(t, "amygdala", 0.2),
			buildRegion(t, "hippocampus", 0.6),
			buildRegion(t, "thalamus", 0.4),
		},
		[]*entities.Connection{
			buildConnection(t, "c1", "amygdala", "hippocampus"),
			buildConnection(t, "c2", "hippocampus", "thalamus"),
		},
		nil,
	)
	require.NoError(t, err)
	return graph
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return NewCoordinator(config.DefaultDomainConfig(), nil, zap.NewNop(), nil)
}

func TestCoordinator_GetRenderState_NoGraph(t *testing.T) {
	c := newTestCoordinator(t)

	_, err := c.GetRenderState()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCoordinator_IngestSelectDelta(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	c.Select("amygdala")
	require.NoError(t, c.ApplyActivityDelta("amygdala", 0.9))

	state, err := c.GetRenderState()
	require.NoError(t, err)

	assert.Equal(t, "g1", state.GraphID)
	assert.Equal(t, 2, state.GraphVersion)
	require.Len(t, state.Regions, 3)

	// Regions are sorted by id: amygdala first
	amygdala := state.Regions[0]
	assert.Equal(t, "amygdala", amygdala.ID)
	assert.Equal(t, 0.9, amygdala.ActivityLevel)
	assert.True(t, amygdala.IsActive)
	assert.True(t, amygdala.Selected)

	assert.Equal(t, []string{"amygdala"}, state.Selection.SelectedIDs)
	assert.Equal(t, SelectionModeSingle, state.Selection.Mode)
	require.Len(t, state.Connections, 2)
}

func TestCoordinator_IngestRejectsInvalidGraphKeepsPrior(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	before, err := c.GetRenderState()
	require.NoError(t, err)

	err = c.IngestGraph(2, nil)
	require.Error(t, err)

	after, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, "g1", after.GraphID)
	assert.Equal(t, before.GraphVersion, after.GraphVersion)
}

func TestCoordinator_IngestDiscardsStaleRequestID(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(5, buildGraph(t, "newer")))

	// The older fetch result arrives late; it must not win
	require.NoError(t, c.IngestGraph(3, buildGraph(t, "older")))

	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, "newer", state.GraphID)

	// Equal request id is also stale
	require.NoError(t, c.IngestGraph(5, buildGraph(t, "duplicate")))
	state, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, "newer", state.GraphID)
}

func TestCoordinator_IngestResetsSelection(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))
	c.Select("amygdala", "thalamus")
	c.Highlight("hippocampus")

	require.NoError(t, c.IngestGraph(2, buildGraph(t, "g2")))

	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Empty(t, state.Selection.SelectedIDs)
	assert.Empty(t, state.Selection.HighlightedIDs)
	assert.Equal(t, SelectionModeIdle, state.Selection.Mode)
}

func TestCoordinator_ActivityDelta_RangeErrorReturned(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	err := c.ApplyActivityDelta("amygdala", 1.5)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRange(err))

	// Graph unchanged
	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, 1, state.GraphVersion)
}

func TestCoordinator_ActivityDelta_UnknownRegionIgnored(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	// Stale ids from async callbacks are expected: logged, not an error
	require.NoError(t, c.ApplyActivityDelta("long-gone", 0.5))

	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, 1, state.GraphVersion)
}

func TestCoordinator_ActivityDeltas_Batch(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	require.NoError(t, c.ApplyActivityDeltas(map[string]float64{
		"amygdala":  0.8,
		"thalamus":  0.05,
		"long-gone": 0.5, // dropped, not fatal
	}))

	state, err := c.GetRenderState()
	require.NoError(t, err)
	// One version bump for the whole batch
	assert.Equal(t, 2, state.GraphVersion)
	assert.Equal(t, 0.8, state.Regions[0].ActivityLevel)
	assert.Equal(t, 0.05, state.Regions[2].ActivityLevel)
}

func TestCoordinator_ActivityDeltas_BadEntryFailsWholeBatch(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	err := c.ApplyActivityDeltas(map[string]float64{
		"amygdala": 2.0,
	})
	require.Error(t, err)

	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, 1, state.GraphVersion)
	assert.Equal(t, 0.2, state.Regions[0].ActivityLevel)
}

func TestCoordinator_ToggleRegionActive(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	require.NoError(t, c.ToggleRegionActive("amygdala"))
	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.True(t, state.Regions[0].IsActive)
	assert.Equal(t, 0.5, state.Regions[0].ActivityLevel)

	require.NoError(t, c.ToggleRegionActive("amygdala"))
	state, err = c.GetRenderState()
	require.NoError(t, err)
	assert.False(t, state.Regions[0].IsActive)
	assert.Equal(t, 0.1, state.Regions[0].ActivityLevel)

	// Unknown region is ignored
	require.NoError(t, c.ToggleRegionActive("long-gone"))
}

func TestCoordinator_SelectFiltersUnknownIDs(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	c.Select("amygdala", "long-gone", "thalamus")

	selection := c.Selection()
	assert.Equal(t, []string{"amygdala", "thalamus"}, selection.SelectedIDs)
	assert.Equal(t, SelectionModeMulti, selection.Mode)
}

func TestCoordinator_Memoization(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	first, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Recomputes())

	// Nothing changed: same snapshot, no recompute
	second, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), c.Recomputes())

	// Each tracked input invalidates the memo
	require.NoError(t, c.ApplyActivityDelta("amygdala", 0.7))
	third, err := c.GetRenderState()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, uint64(2), c.Recomputes())

	c.Select("amygdala")
	_, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.Recomputes())

	require.NoError(t, c.SetDetailOverride(tierPtr(DetailTierLow)))
	_, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.Recomputes())

	c.SetClinicalContext(&clinical.Context{}, nil)
	_, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), c.Recomputes())
}

func tierPtr(tier DetailTier) *DetailTier {
	return &tier
}

func TestCoordinator_MemoSurvivesIgnoredOperations(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	first, err := c.GetRenderState()
	require.NoError(t, err)

	// An ignored unknown-region delta changes nothing tracked
	require.NoError(t, c.ApplyActivityDelta("long-gone", 0.5))

	second, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), c.Recomputes())
}

func TestCoordinator_FreshGraphInvalidatesMemoDespiteVersionReset(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	first, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, 1, first.GraphVersion)

	// The new graph also starts at version 1; the selection reset plus
	// the generation counter must still invalidate the memo
	require.NoError(t, c.IngestGraph(2, buildGraph(t, "g2")))

	second, err := c.GetRenderState()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "g2", second.GraphID)
}

func TestCoordinator_ClinicalOverlaysForSelectedRegions(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	ctx, skipped := clinical.ParseContext(clinical.ContextPayload{
		SymptomMappings: []clinical.MappingPayload{{
			SubjectID:   "anxiety",
			SubjectName: "Anxiety",
			Patterns: []clinical.PatternPayload{
				{RegionIDs: []string{"amygdala"}, Weight: 0.9},
			},
		}},
		TreatmentEffects: []clinical.TreatmentPayload{{
			TreatmentID:         "ssri",
			ResponseProbability: 0.7,
			ResponseCategory:    "remission",
			Mechanisms: []clinical.MechanismPayload{
				{PathwayName: "serotonergic", RelevantRegions: []string{"amygdala"}},
			},
		}},
		ActiveSymptoms: []string{"anxiety"},
	})
	require.Empty(t, skipped)
	c.SetClinicalContext(ctx, skipped)

	// No selection yet: no overlays at all
	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Empty(t, state.Overlays)

	c.Select("thalamus", "amygdala")
	state, err = c.GetRenderState()
	require.NoError(t, err)

	// Overlays follow selection order
	require.Len(t, state.Overlays, 2)
	assert.Equal(t, "thalamus", state.Overlays[0].RegionID)
	assert.Empty(t, state.Overlays[0].RelatedSymptoms)

	amygdala := state.Overlays[1]
	assert.Equal(t, "amygdala", amygdala.RegionID)
	require.Len(t, amygdala.RelatedSymptoms, 1)
	assert.Equal(t, "anxiety", amygdala.RelatedSymptoms[0].SubjectID)
	require.Len(t, amygdala.TreatmentEffects, 1)
	assert.Equal(t, "ssri", amygdala.TreatmentEffects[0].TreatmentID)
}

func TestCoordinator_DetailTierInRenderState(t *testing.T) {
	lod, err := NewLODPolicy(DeviceClassHigh, LODModeHybrid)
	require.NoError(t, err)
	c := NewCoordinator(nil, lod, zap.NewNop(), nil)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, DetailTierDynamic, state.DetailTier)
	// Three regions on a high-end device: the dynamic budget is high
	assert.Equal(t, 32, state.Detail.GeometrySegments)

	c.ReportPerformanceWarning()
	state, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, DetailTierLow, state.DetailTier)
	assert.Equal(t, 8, state.Detail.GeometrySegments)
}

func TestCoordinator_SetDetailOverride(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.IngestGraph(1, buildGraph(t, "g1")))

	require.NoError(t, c.SetDetailOverride(tierPtr(DetailTierHigh)))
	state, err := c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, DetailTierHigh, state.DetailTier)

	// nil clears the override back to auto
	require.NoError(t, c.SetDetailOverride(nil))
	state, err = c.GetRenderState()
	require.NoError(t, err)
	assert.Equal(t, DetailTierMedium, state.DetailTier)
}

func BenchmarkCoordinator_GetRenderState_Memoized(b *testing.B) {
	c := NewCoordinator(nil, nil, zap.NewNop(), nil)
	if err := c.IngestGraph(1, buildGraph(&testing.T{}, "g1")); err != nil {
		b.Fatal(err)
	}
	if _, err := c.GetRenderState(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.GetRenderState(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCoordinator_ApplyActivityDelta(b *testing.B) {
	c := NewCoordinator(nil, nil, zap.NewNop(), nil)
	if err := c.IngestGraph(1, buildGraph(&testing.T{}, "g1")); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.ApplyActivityDelta("amygdala", float64(i%100)/100); err != nil {
			b.Fatal(err)
		}
	}
}
