package aggregates

import (
	"fmt"
	"sort"
	"time"

	"neurotwin-backend/domain/config"
	"neurotwin-backend/domain/core/entities"
	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"
)

// BrainGraph is the aggregate root for one scan of a patient's brain.
// A graph is immutable once constructed: activity updates produce a new
// graph version that shares every untouched region and connection by
// reference, so render states computed against an older version can be
// discarded without tearing live references.
type BrainGraph struct {
	id          valueobjects.GraphID
	patientID   string
	capturedAt  time.Time
	regions     map[valueobjects.RegionID]*entities.Region
	connections map[valueobjects.ConnectionID]*entities.Connection
	version     int
	cfg         *config.DomainConfig
}

// NewBrainGraph constructs and validates a graph from its parts. The
// regions' connection-reference sets are derived from the connection
// list, and the referential invariant (every connection endpoint
// resolves to a region in the same graph) is enforced here: a dangling
// endpoint is a hard validation failure, never silently dropped.
func NewBrainGraph(
	id valueobjects.GraphID,
	patientID string,
	capturedAt time.Time,
	regions []*entities.Region,
	connections []*entities.Connection,
	cfg *config.DomainConfig,
) (*BrainGraph, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if len(regions) > cfg.MaxRegionsPerGraph {
		return nil, pkgerrors.NewGraphValidationError(
			fmt.Sprintf("graph has %d regions (limit: %d)", len(regions), cfg.MaxRegionsPerGraph))
	}
	if len(connections) > cfg.MaxConnectionsPerGraph {
		return nil, pkgerrors.NewGraphValidationError(
			fmt.Sprintf("graph has %d connections (limit: %d)", len(connections), cfg.MaxConnectionsPerGraph))
	}

	regionMap := make(map[valueobjects.RegionID]*entities.Region, len(regions))
	for _, region := range regions {
		if region == nil {
			return nil, pkgerrors.NewGraphValidationError("region cannot be nil")
		}
		if _, exists := regionMap[region.ID()]; exists {
			return nil, pkgerrors.NewGraphValidationError(
				fmt.Sprintf("duplicate region id %q", region.ID()))
		}
		regionMap[region.ID()] = region
	}

	connectionMap := make(map[valueobjects.ConnectionID]*entities.Connection, len(connections))
	for _, connection := range connections {
		if connection == nil {
			return nil, pkgerrors.NewGraphValidationError("connection cannot be nil")
		}
		if _, exists := connectionMap[connection.ID()]; exists {
			return nil, pkgerrors.NewGraphValidationError(
				fmt.Sprintf("duplicate connection id %q", connection.ID()))
		}

		source, sourceExists := regionMap[connection.SourceID()]
		_, targetExists := regionMap[connection.TargetID()]
		if !sourceExists {
			return nil, pkgerrors.NewGraphValidationError(
				fmt.Sprintf("connection %q references non-existent source region %q",
					connection.ID(), connection.SourceID()))
		}
		if !targetExists {
			return nil, pkgerrors.NewGraphValidationError(
				fmt.Sprintf("connection %q references non-existent target region %q",
					connection.ID(), connection.TargetID()))
		}

		connectionMap[connection.ID()] = connection
		regionMap[connection.SourceID()] = source.WithConnectionRef(connection.ID())
		if !connection.TargetID().Equals(connection.SourceID()) {
			// Re-read: the source ref above may have replaced the entry
			// the target pointer was taken from when source == target.
			regionMap[connection.TargetID()] = regionMap[connection.TargetID()].WithConnectionRef(connection.ID())
		}
	}

	graph := &BrainGraph{
		id:          id,
		patientID:   patientID,
		capturedAt:  capturedAt,
		regions:     regionMap,
		connections: connectionMap,
		version:     1,
		cfg:         cfg,
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}

// ID returns the graph's unique identifier
func (g *BrainGraph) ID() valueobjects.GraphID {
	return g.id
}

// PatientID returns the owning patient's id, empty when anonymous
func (g *BrainGraph) PatientID() string {
	return g.patientID
}

// CapturedAt returns when the scan was captured, zero when unknown
func (g *BrainGraph) CapturedAt() time.Time {
	return g.capturedAt
}

// Version returns the graph version
func (g *BrainGraph) Version() int {
	return g.version
}

// RegionCount returns the number of regions in the graph
func (g *BrainGraph) RegionCount() int {
	return len(g.regions)
}

// ConnectionCount returns the number of connections in the graph
func (g *BrainGraph) ConnectionCount() int {
	return len(g.connections)
}

// FindRegion retrieves a region by id
func (g *BrainGraph) FindRegion(id valueobjects.RegionID) (*entities.Region, error) {
	region, exists := g.regions[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("region " + id.String())
	}
	return region, nil
}

// HasRegion checks if a region exists in the graph without error
func (g *BrainGraph) HasRegion(id valueobjects.RegionID) bool {
	_, exists := g.regions[id]
	return exists
}

// Regions returns all regions sorted by id for deterministic output
func (g *BrainGraph) Regions() []*entities.Region {
	regions := make([]*entities.Region, 0, len(g.regions))
	for _, region := range g.regions {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID() < regions[j].ID() })
	return regions
}

// Connections returns all connections sorted by id
func (g *BrainGraph) Connections() []*entities.Connection {
	connections := make([]*entities.Connection, 0, len(g.connections))
	for _, connection := range g.connections {
		connections = append(connections, connection)
	}
	sort.Slice(connections, func(i, j int) bool { return connections[i].ID() < connections[j].ID() })
	return connections
}

// ConnectionsOf returns every connection touching the region on either
// end, sorted by id. A self-referential connection appears once.
func (g *BrainGraph) ConnectionsOf(regionID valueobjects.RegionID) []*entities.Connection {
	var connections []*entities.Connection
	for _, connection := range g.connections {
		if connection.Involves(regionID) {
			connections = append(connections, connection)
		}
	}
	sort.Slice(connections, func(i, j int) bool { return connections[i].ID() < connections[j].ID() })
	return connections
}

// NeighborsOf returns the regions reachable over ConnectionsOf, sorted
// by id and excluding the region itself.
func (g *BrainGraph) NeighborsOf(regionID valueobjects.RegionID) []*entities.Region {
	seen := make(map[valueobjects.RegionID]struct{})
	var neighbors []*entities.Region

	for _, connection := range g.ConnectionsOf(regionID) {
		otherID := connection.TargetID()
		if otherID.Equals(regionID) {
			otherID = connection.SourceID()
		}
		if otherID.Equals(regionID) {
			continue
		}
		if _, dup := seen[otherID]; dup {
			continue
		}
		seen[otherID] = struct{}{}
		if neighbor, ok := g.regions[otherID]; ok {
			neighbors = append(neighbors, neighbor)
		}
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].ID() < neighbors[j].ID() })
	return neighbors
}

// WithRegionActivity returns a new graph version where only the given
// region's activity level (and derived active flag) changed. All other
// regions and the connection map are shared with the receiver.
func (g *BrainGraph) WithRegionActivity(regionID valueobjects.RegionID, level valueobjects.ActivityLevel) (*BrainGraph, error) {
	region, exists := g.regions[regionID]
	if !exists {
		return nil, pkgerrors.NewUnknownRegionError(regionID.String())
	}
	return g.withReplacedRegions(map[valueobjects.RegionID]*entities.Region{
		regionID: region.WithActivity(level, g.cfg),
	}), nil
}

// WithActivityDeltas applies a batch of activity updates as one new
// graph version.
func (g *BrainGraph) WithActivityDeltas(deltas map[valueobjects.RegionID]valueobjects.ActivityLevel) (*BrainGraph, error) {
	replaced := make(map[valueobjects.RegionID]*entities.Region, len(deltas))
	for regionID, level := range deltas {
		region, exists := g.regions[regionID]
		if !exists {
			return nil, pkgerrors.NewUnknownRegionError(regionID.String())
		}
		replaced[regionID] = region.WithActivity(level, g.cfg)
	}
	return g.withReplacedRegions(replaced), nil
}

// WithRegionToggled returns a new graph version with the region's
// active flag flipped and its activity snapped to the configured
// high/low defaults.
func (g *BrainGraph) WithRegionToggled(regionID valueobjects.RegionID) (*BrainGraph, error) {
	region, exists := g.regions[regionID]
	if !exists {
		return nil, pkgerrors.NewUnknownRegionError(regionID.String())
	}
	return g.withReplacedRegions(map[valueobjects.RegionID]*entities.Region{
		regionID: region.Toggled(g.cfg),
	}), nil
}

// Validate ensures graph invariants: no connection endpoint and no
// region connection-reference may dangle.
func (g *BrainGraph) Validate() error {
	for _, connection := range g.connections {
		if _, sourceExists := g.regions[connection.SourceID()]; !sourceExists {
			return pkgerrors.NewGraphValidationError(
				fmt.Sprintf("connection %q references non-existent source region %q",
					connection.ID(), connection.SourceID()))
		}
		if _, targetExists := g.regions[connection.TargetID()]; !targetExists {
			return pkgerrors.NewGraphValidationError(
				fmt.Sprintf("connection %q references non-existent target region %q",
					connection.ID(), connection.TargetID()))
		}
	}

	for _, region := range g.regions {
		for _, connectionID := range region.ConnectionIDs() {
			if _, exists := g.connections[connectionID]; !exists {
				return pkgerrors.NewGraphValidationError(
					fmt.Sprintf("region %q references non-existent connection %q",
						region.ID(), connectionID))
			}
		}
	}

	return nil
}

// withReplacedRegions builds the copy-on-write successor version:
// a fresh region map carrying the replacements, the same connection
// map, and a bumped version number.
func (g *BrainGraph) withReplacedRegions(replaced map[valueobjects.RegionID]*entities.Region) *BrainGraph {
	regions := make(map[valueobjects.RegionID]*entities.Region, len(g.regions))
	for id, region := range g.regions {
		regions[id] = region
	}
	for id, region := range replaced {
		regions[id] = region
	}

	return &BrainGraph{
		id:          g.id,
		patientID:   g.patientID,
		capturedAt:  g.capturedAt,
		regions:     regions,
		connections: g.connections,
		version:     g.version + 1,
		cfg:         g.cfg,
	}
}
