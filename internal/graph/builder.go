package graph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/models"
)

// Stats summarises a build
type Stats struct {
	Nodes   int
	Edges   int
	Skipped int
}

// Builder constructs route graphs from path records
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new graph builder
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build creates a graph whose nodes are the accepted station codes.
// Path records are flattened first; segments with an endpoint outside the
// accepted set are skipped, and a later segment between the same pair of
// stations replaces an earlier one.
func (b *Builder) Build(accepted []string, records []models.PathRecord) (*RouteGraph, Stats) {
	g := New(accepted...)

	var stats Stats
	for _, p := range models.FlattenPaths(records) {
		start, end := p.Endpoints()
		edge := Edge{
			From:        start,
			To:          end,
			Length:      p.LengthKm(),
			MaxSpeed:    p.Speed(),
			Electrified: p.IsElectrified(),
			Category:    p.Category(),
			Equipments:  sortedCopy(p.NeededEquipments),
		}
		if p.Name != nil {
			edge.Name = *p.Name
		}
		if !g.AddEdge(edge) {
			stats.Skipped++
			b.logger.Debug("skipping path outside accepted stations",
				zap.String("start", start),
				zap.String("end", end),
			)
		}
	}

	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	b.logger.Debug("built route graph",
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("skipped", stats.Skipped),
	)
	return g, stats
}

// BuildFromRecords accepts every station code of the flattened station
// records
func (b *Builder) BuildFromRecords(stations []models.StationRecord, paths []models.PathRecord) (*RouteGraph, Stats) {
	return b.Build(StationCodes(stations), paths)
}

// StationCodes returns the non-empty codes of the flattened records
func StationCodes(stations []models.StationRecord) []string {
	flat := models.FlattenStations(stations)
	out := make([]string, 0, len(flat))
	for _, s := range flat {
		if code := s.Code(); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// StationGroups maps station codes to their display group
func StationGroups(stations []models.StationRecord) map[string]models.StationGroup {
	flat := models.FlattenStations(stations)
	out := make(map[string]models.StationGroup, len(flat))
	for _, s := range flat {
		if code := s.Code(); code != "" {
			out[code] = s.StationGroup()
		}
	}
	return out
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
