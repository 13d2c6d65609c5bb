// Package paths turns planned train routes into path records for the path
// document.
package paths

import (
	"errors"
	"math"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/models"
	"github.com/tcdata/railnet/internal/stations"
)

var (
	ErrShortRoute = errors.New("route needs at least two waypoints")
	ErrNoStops    = errors.New("route has no stop after its first waypoint")
)

// Builder resolves waypoints against the merged station list and the
// tracks of every route number
type Builder struct {
	stations map[string]*models.Station
	tracks   map[int]models.TrackPath
	logger   *zap.Logger
}

// NewBuilder creates a builder. tracks are expected to be merged with
// models.MergeTracks.
func NewBuilder(stationList []*models.Station, tracks []models.TrackPath, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	byRoute := make(map[int]models.TrackPath, len(tracks))
	for _, p := range tracks {
		byRoute[p.RouteNumber] = p
	}
	return &Builder{
		stations: stations.Index(stationList),
		tracks:   byRoute,
		logger:   logger,
	}
}

// Route is a planned route cut at its stops
type Route struct {
	// Stops holds the known stations the route stops at, in order
	Stops    []*models.Station
	Segments []models.PathRecord
}

// Record combines the segments into one path record. Fields shared by all
// segments move to the parent, so flattening the record yields the
// segments again. A single segment is returned as is.
func (r Route) Record(name string) models.PathRecord {
	var parent models.PathRecord
	if len(r.Segments) == 1 {
		parent = r.Segments[0]
	} else {
		children := slices.Clone(r.Segments)
		parent = models.PathRecord{
			Start:          hoist(children, func(p *models.PathRecord) **string { return &p.Start }),
			End:            hoist(children, func(p *models.PathRecord) **string { return &p.End }),
			Length:         hoist(children, func(p *models.PathRecord) **float64 { return &p.Length }),
			MaxSpeed:       hoist(children, func(p *models.PathRecord) **int { return &p.MaxSpeed }),
			Electrified:    hoist(children, func(p *models.PathRecord) **bool { return &p.Electrified }),
			Group:          hoist(children, func(p *models.PathRecord) **int { return &p.Group }),
			TwistingFactor: hoist(children, func(p *models.PathRecord) **float64 { return &p.TwistingFactor }),
			Objects:        children,
		}
		if equalEquipments(children) {
			parent.NeededEquipments = children[0].NeededEquipments
			for i := range children {
				children[i].NeededEquipments = nil
			}
		}
	}
	if name != "" {
		parent.Name = &name
	}
	return parent
}

// hoist clears a field in every child and returns its value when all
// children agree, otherwise it leaves them untouched and returns nil
func hoist[T comparable](children []models.PathRecord, field func(*models.PathRecord) **T) *T {
	first := *field(&children[0])
	for i := 1; i < len(children); i++ {
		v := *field(&children[i])
		if (first == nil) != (v == nil) || (first != nil && *first != *v) {
			return nil
		}
	}
	for i := range children {
		*field(&children[i]) = nil
	}
	return first
}

func equalEquipments(children []models.PathRecord) bool {
	for _, c := range children[1:] {
		if !slices.Equal(c.NeededEquipments, children[0].NeededEquipments) {
			return false
		}
	}
	return children[0].NeededEquipments != nil
}

// FromRoute cuts the waypoints into one segment per stop. Every segment
// starts at the previous stop, or the first waypoint, and is described by
// the tracks it runs on: it is electrified only when all of them are, its
// group is the best track category and its equipment the countries it
// touches.
func (b *Builder) FromRoute(waypoints []models.Waypoint) (Route, error) {
	if len(waypoints) < 2 {
		return Route{}, ErrShortRoute
	}

	var route Route
	if s := b.station(waypoints[0].Code); s != nil {
		route.Stops = append(route.Stops, s)
	}

	var visited []models.Waypoint
	var used []models.Track
	for i := 0; i+1 < len(waypoints); i++ {
		from, to := waypoints[i], waypoints[i+1]
		var last *models.Track
		if len(used) > 0 {
			last = &used[len(used)-1]
		}
		used = append(used, b.tracksBetween(from, to, last)...)
		visited = append(visited, from)
		if !to.Stop {
			continue
		}

		route.Segments = append(route.Segments, b.segment(visited, to, used))
		if s := b.station(to.Code); s != nil {
			route.Stops = append(route.Stops, s)
		}
		visited, used = nil, nil
	}
	if len(route.Segments) == 0 {
		return Route{}, ErrNoStops
	}
	return route, nil
}

func (b *Builder) segment(visited []models.Waypoint, end models.Waypoint, tracks []models.Track) models.PathRecord {
	start := visited[0]
	startCode, endCode := b.code(start.Code), b.code(end.Code)
	distance := end.Distance - start.Distance
	length := math.Trunc(distance)
	electrified := true
	best := tracks[0].Category
	speed := 0
	for _, t := range tracks {
		electrified = electrified && t.Electrified
		if t.Category.Rank() > best.Rank() {
			best = t.Category
		}
		if t.MaxSpeed > 0 && (speed == 0 || t.MaxSpeed < speed) {
			speed = t.MaxSpeed
		}
	}
	group := int(best)

	record := models.PathRecord{
		Start:       &startCode,
		End:         &endCode,
		Length:      &length,
		Electrified: &electrified,
		Group:       &group,
	}
	if speed > 0 {
		record.MaxSpeed = &speed
	}
	if twist, ok := b.twistingFactor(start.Code, end.Code, distance); ok {
		record.TwistingFactor = &twist
	}
	record.NeededEquipments = countries(visited, end)
	return record
}

func (b *Builder) twistingFactor(startCode, endCode string, distance float64) (float64, bool) {
	s, e := b.station(startCode), b.station(endCode)
	if s == nil || e == nil || s.Location == nil || e.Location == nil {
		b.logger.Debug("no location for twisting factor", zap.String("start", startCode), zap.String("end", endCode))
		return 0, false
	}
	direct := distanceKm(*s.Location, *e.Location)
	if direct == 0 {
		return 0, false
	}
	sinuosity := round(distance/direct, 3)
	return round(TwistingFactor(sinuosity), 2), true
}

// countries returns the sorted ISO codes of the countries a segment touches
func countries(visited []models.Waypoint, end models.Waypoint) []string {
	seen := map[string]bool{}
	var out []string
	for _, code := range append(waypointCodes(visited), end.Code) {
		country, _, _ := codes.Classify(code)
		if country.Known() && !seen[country.ISO3166] {
			seen[country.ISO3166] = true
			out = append(out, country.ISO3166)
		}
	}
	sort.Strings(out)
	return out
}

func waypointCodes(waypoints []models.Waypoint) []string {
	out := make([]string, len(waypoints))
	for i, wp := range waypoints {
		out[i] = wp.Code
	}
	return out
}

func (b *Builder) station(code string) *models.Station {
	return b.stations[code]
}

// code returns the canonical code of a known station, the waypoint code
// otherwise
func (b *Builder) code(code string) string {
	if s := b.station(code); s != nil && s.FirstCode() != "" {
		return s.FirstCode()
	}
	return code
}

// tracksBetween finds the tracks of the route leading from one waypoint to
// the next. When the stations cannot be placed on the route, the previous
// track of the same route is reused, then a typical track of the route.
func (b *Builder) tracksBetween(from, to models.Waypoint, last *models.Track) []models.Track {
	logger := b.logger.With(zap.String("from", from.Code), zap.String("to", to.Code), zap.Int("route", from.NextRoute))
	for _, code := range []string{from.Code, to.Code} {
		if b.station(code) == nil {
			logger.Warn("unknown station on route", zap.String("code", code))
		}
	}

	path, ok := b.tracks[from.NextRoute]
	if from.NextRoute == 0 || !ok || len(path.Tracks) == 0 {
		logger.Warn("unknown route number, electrification and category are unknown")
		return []models.Track{{RouteNumber: from.NextRoute, Category: models.CategoryUnknown}}
	}

	startKm, okStart := b.kilometre(from.Code, from.NextRoute)
	endKm, okEnd := b.kilometre(to.Code, from.NextRoute)
	if okStart && okEnd {
		lo, hi := min(startKm, endKm), max(startKm, endKm)
		var found []models.Track
		for _, t := range path.Tracks {
			if t.FromKm != nil && t.ToKm != nil && overlaps(*t.FromKm, *t.ToKm, lo, hi) {
				found = append(found, t)
			}
		}
		if len(found) > 0 {
			return found
		}
	}

	if last != nil && last.RouteNumber == from.NextRoute {
		logger.Warn("no track between stations, reusing the previous track")
		fallback := *last
		fallback.Length = 0
		return []models.Track{fallback}
	}
	logger.Warn("no track between stations, using the median track of the route")
	return []models.Track{medianTrack(path)}
}

// overlaps reports whether a track shares more than a boundary point with
// the stretch lo..hi, or contains it when the stretch is a single point
func overlaps(from, to, lo, hi float64) bool {
	if lo == hi {
		return from <= lo && lo <= to
	}
	return from < hi && to > lo
}

func (b *Builder) kilometre(code string, route int) (float64, bool) {
	s := b.station(code)
	if s == nil {
		return 0, false
	}
	for _, loc := range s.PathLocations {
		if loc.RouteNumber == route {
			return loc.Kilometre, true
		}
	}
	return 0, false
}

// medianTrack describes a route by the upper median of the electrification
// and the category of its tracks
func medianTrack(path models.TrackPath) models.Track {
	electrified := make([]bool, len(path.Tracks))
	categories := make([]models.TrackCategory, len(path.Tracks))
	for i, t := range path.Tracks {
		electrified[i] = t.Electrified
		categories[i] = t.Category
	}
	sort.Slice(electrified, func(i, j int) bool { return !electrified[i] && electrified[j] })
	sort.Slice(categories, func(i, j int) bool { return categories[i].Rank() < categories[j].Rank() })
	mid := len(path.Tracks) / 2
	return models.Track{
		RouteNumber: path.RouteNumber,
		Electrified: electrified[mid],
		Category:    categories[mid],
	}
}
