package stations

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/models"
)

// CollapseOnFirstCode merges stations sharing a canonical code into the
// first of them. This drops the identity of the later stations and is
// only applied to sources known to list one location several times.
func CollapseOnFirstCode(stations []*models.Station, logger *zap.Logger) []*models.Station {
	if logger == nil {
		logger = zap.NewNop()
	}
	byCode := make(map[string]*models.Station, len(stations))
	out := make([]*models.Station, 0, len(stations))
	for _, s := range stations {
		first := s.FirstCode()
		if base, ok := byCode[first]; ok && first != "" {
			logger.Debug("collapsing duplicate station", zap.String("code", first), zap.String("name", s.Name))
			absorb(base, s, s.Codes)
			continue
		}
		byCode[first] = s
		out = append(out, s)
	}
	return out
}

// AttachPlatforms appends platforms to the station with the same station
// number and returns the platforms that matched no station
func AttachPlatforms(stations []*models.Station, platforms []models.Platform) []models.Platform {
	byNumber := make(map[int]*models.Station, len(stations))
	for _, s := range stations {
		if s.Number != nil {
			if _, exists := byNumber[*s.Number]; !exists {
				byNumber[*s.Number] = s
			}
		}
	}

	var unmatched []models.Platform
	for _, p := range platforms {
		s, ok := byNumber[p.StationNumber]
		if !ok {
			unmatched = append(unmatched, p)
			continue
		}
		s.Platforms = append(s.Platforms, p)
	}
	return unmatched
}

// Index maps every code to its station. A station's canonical code always
// points to it; other codes point to the first station listing them.
func Index(stations []*models.Station) map[string]*models.Station {
	index := make(map[string]*models.Station)
	for _, s := range stations {
		for _, c := range s.Codes[min(1, len(s.Codes)):] {
			if _, ok := index[c]; !ok {
				index[c] = s
			}
		}
	}
	for _, s := range stations {
		if first := s.FirstCode(); first != "" {
			index[first] = s
		}
	}
	return index
}

// Source is one station list taking part in a pipeline run
type Source struct {
	Name     string
	Stations []*models.Station
	Key      MergeKey
	// Collapse merges duplicate canonical codes within the source first
	Collapse bool
	DataLoss bool
}

// Pipeline merges sources in order. The first source is the base list.
type Pipeline struct {
	logger *zap.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

// Run merges all sources and attaches platforms to the result
func (p *Pipeline) Run(sources []Source, platforms []models.Platform) ([]*models.Station, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	base := sources[0]
	result := base.Stations
	if base.Collapse {
		result = CollapseOnFirstCode(result, p.logger)
	}
	if err := AssertUnique(result, KeyCodes, base.Name); err != nil {
		return nil, err
	}
	p.logger.Info("base station list", zap.String("source", base.Name), zap.Int("stations", len(result)))

	for _, src := range sources[1:] {
		incoming := src.Stations
		if src.Collapse {
			incoming = CollapseOnFirstCode(incoming, p.logger)
		}
		key := src.Key
		if key == "" {
			key = KeyCodes
		}

		opts := []Option{WithLogger(p.logger.With(zap.String("source", src.Name)))}
		if src.DataLoss {
			opts = append(opts, WithDataLoss())
		}

		before := len(result)
		merged, err := Merge(result, incoming, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", src.Name, err)
		}
		if err := AssertUnique(merged, KeyCodes, src.Name); err != nil {
			return nil, fmt.Errorf("merge %s: %w", src.Name, err)
		}
		result = merged
		p.logger.Info("merged source",
			zap.String("source", src.Name),
			zap.String("key", string(key)),
			zap.Int("incoming", len(incoming)),
			zap.Int("before", before),
			zap.Int("after", len(result)),
		)
	}

	if len(platforms) > 0 {
		unmatched := AttachPlatforms(result, platforms)
		p.logger.Info("attached platforms",
			zap.Int("platforms", len(platforms)),
			zap.Int("unmatched", len(unmatched)),
		)
	}
	return result, nil
}
