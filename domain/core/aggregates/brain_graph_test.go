package aggregates

import (
	"testing"
	"time"

	"neurotwin-backend/domain/core/entities"
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegion(t *testing.T, id string, activity float64) *entities.Region {
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

func testConnection(t *testing.T, id, source, target string) *entities.Connection {
	t.Helper()

	conn, err := entities.NewConnection(
		valueobjects.ConnectionID(id),
		valueobjects.RegionID(source),
		valueobjects.RegionID(target),
		0.5,
		entities.ConnectionTypeExcitatory,
		nil,
	)
	require.NoError(t, err)
	return conn
}

func testGraph(t *testing.T) *BrainGraph {
	t.Helper()

	graph, err := NewBrainGraph(
		"graph-1",
		"patient-1",
		time.Now(),
		[]*entities.Region{
			testRegion(t, "a", 0.2),
			testRegion(t, "b", 0.6),
			testRegion(t, "c", 0.4),
		},
		[]*entities.Connection{
			testConnection(t, "ab", "a", "b"),
			testConnection(t, "bc", "b", "c"),
		},
		nil,
	)
	require.NoError(t, err)
	return graph
}

func TestNewBrainGraph(t *testing.T) {
	graph := testGraph(t)

	assert.Equal(t, 1, graph.Version())
	assert.Equal(t, 3, graph.RegionCount())
	assert.Equal(t, 2, graph.ConnectionCount())

	region, err := graph.FindRegion("b")
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ConnectionID{"ab", "bc"}, region.ConnectionIDs())

	_, err = graph.FindRegion("missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNewBrainGraph_RejectsDanglingEndpoint(t *testing.T) {
	_, err := NewBrainGraph(
		"graph-1",
		"patient-1",
		time.Time{},
		[]*entities.Region{testRegion(t, "a", 0.5)},
		[]*entities.Connection{testConnection(t, "ax", "a", "x")},
		nil,
	)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsGraphValidation(err))
	assert.Contains(t, err.Error(), "non-existent target region")
}

func TestNewBrainGraph_RejectsDuplicates(t *testing.T) {
	_, err := NewBrainGraph(
		"graph-1", "", time.Time{},
		[]*entities.Region{testRegion(t, "a", 0.5), testRegion(t, "a", 0.7)},
		nil,
		nil,
	)
	assert.Error(t, err)

	_, err = NewBrainGraph(
		"graph-1", "", time.Time{},
		[]*entities.Region{testRegion(t, "a", 0.5), testRegion(t, "b", 0.5)},
		[]*entities.Connection{testConnection(t, "ab", "a", "b"), testConnection(t, "ab", "b", "a")},
		nil,
	)
	assert.Error(t, err)
}

func TestNewBrainGraph_SelfLoop(t *testing.T) {
	graph, err := NewBrainGraph(
		"graph-1", "", time.Time{},
		[]*entities.Region{testRegion(t, "a", 0.5)},
		[]*entities.Connection{testConnection(t, "aa", "a", "a")},
		nil,
	)
	require.NoError(t, err)

	region, err := graph.FindRegion("a")
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ConnectionID{"aa"}, region.ConnectionIDs())

	// A self loop is not its own neighbor
	assert.Empty(t, graph.NeighborsOf("a"))
	assert.Len(t, graph.ConnectionsOf("a"), 1)
}

func TestBrainGraph_ConnectionsOf_BothDirections(t *testing.T) {
	graph := testGraph(t)

	connections := graph.ConnectionsOf("b")
	require.Len(t, connections, 2)
	assert.Equal(t, valueobjects.ConnectionID("ab"), connections[0].ID())
	assert.Equal(t, valueobjects.ConnectionID("bc"), connections[1].ID())

	neighbors := graph.NeighborsOf("b")
	require.Len(t, neighbors, 2)
	assert.Equal(t, valueobjects.RegionID("a"), neighbors[0].ID())
	assert.Equal(t, valueobjects.RegionID("c"), neighbors[1].ID())
}

func TestBrainGraph_WithRegionActivity_CopyOnWrite(t *testing.T) {
	graph := testGraph(t)
	level, err := valueobjects.NewActivityLevel(0.9)
	require.NoError(t, err)

	next, err := graph.WithRegionActivity("a", level)
	require.NoError(t, err)

	assert.Equal(t, 2, next.Version())
	assert.Equal(t, 1, graph.Version())

	// The original graph still sees the old activity
	before, _ := graph.FindRegion("a")
	after, _ := next.FindRegion("a")
	assert.Equal(t, 0.2, before.ActivityLevel().Value())
	assert.Equal(t, 0.9, after.ActivityLevel().Value())
	assert.True(t, after.IsActive())

	// Untouched regions and connections are shared by reference
	beforeB, _ := graph.FindRegion("b")
	afterB, _ := next.FindRegion("b")
	assert.Same(t, beforeB, afterB)
	assert.Same(t, graph.Connections()[0], next.Connections()[0])
}

func TestBrainGraph_WithRegionActivity_UnknownRegion(t *testing.T) {
	graph := testGraph(t)
	level, err := valueobjects.NewActivityLevel(0.9)
	require.NoError(t, err)

	_, err = graph.WithRegionActivity("missing", level)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnknownRegion(err))
}

func TestBrainGraph_WithActivityDeltas(t *testing.T) {
	graph := testGraph(t)
	high, _ := valueobjects.NewActivityLevel(0.8)
	low, _ := valueobjects.NewActivityLevel(0.05)

	next, err := graph.WithActivityDeltas(map[valueobjects.RegionID]valueobjects.ActivityLevel{
		"a": high,
		"c": low,
	})
	require.NoError(t, err)

	// One batch, one version bump
	assert.Equal(t, 2, next.Version())

	a, _ := next.FindRegion("a")
	c, _ := next.FindRegion("c")
	assert.Equal(t, 0.8, a.ActivityLevel().Value())
	assert.Equal(t, 0.05, c.ActivityLevel().Value())
}

func TestBrainGraph_WithRegionToggled(t *testing.T) {
	graph := testGraph(t)

	next, err := graph.WithRegionToggled("a")
	require.NoError(t, err)

	toggled, _ := next.FindRegion("a")
	assert.True(t, toggled.IsActive())
	assert.Equal(t, 0.5, toggled.ActivityLevel().Value())

	again, err := next.WithRegionToggled("a")
	require.NoError(t, err)
	off, _ := again.FindRegion("a")
	assert.False(t, off.IsActive())
	assert.Equal(t, 0.1, off.ActivityLevel().Value())
	assert.Equal(t, 3, again.Version())
}

func BenchmarkBrainGraph_WithRegionActivity(b *testing.B) {
	graph := testGraph(&testing.T{})
	level, err := valueobjects.NewActivityLevel(0.7)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := graph.WithRegionActivity("a", level)
		if err != nil {
			b.Fatal(err)
		}
		graph = next
	}
}

func BenchmarkBrainGraph_ConnectionsOf(b *testing.B) {
	graph := testGraph(&testing.T{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = graph.ConnectionsOf("b")
	}
}
