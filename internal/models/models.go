package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/tcdata/railnet/internal/codes"
)

// StationGroup is the display category of a station
type StationGroup int

const (
	GroupKnotStation StationGroup = iota
	GroupMainStation
	GroupBranchStation
	GroupOperatingPoint
	GroupJunction
	GroupHalt
	GroupHidden
)

var groupNames = map[StationGroup]string{
	GroupKnotStation:    "knot_station",
	GroupMainStation:    "main_station",
	GroupBranchStation:  "branch_station",
	GroupOperatingPoint: "operating_point",
	GroupJunction:       "junction",
	GroupHalt:           "halt",
	GroupHidden:         "hidden",
}

func (g StationGroup) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return "group(" + strconv.Itoa(int(g)) + ")"
}

// Valid reports whether g is one of the known groups
func (g StationGroup) Valid() bool {
	_, ok := groupNames[g]
	return ok
}

// DefaultHiddenGroups returns the groups that are not shown to players
// unless they are waypoints
func DefaultHiddenGroups() map[StationGroup]bool {
	return map[StationGroup]bool{
		GroupHalt:   true,
		GroupHidden: true,
	}
}

// TrackCategory classifies a track or path segment
type TrackCategory int

const (
	CategoryUnknown   TrackCategory = -1
	CategoryMainLine  TrackCategory = 0
	CategoryBranch    TrackCategory = 1
	CategoryHighSpeed TrackCategory = 2
)

func (c TrackCategory) String() string {
	switch c {
	case CategoryMainLine:
		return "main"
	case CategoryBranch:
		return "branch"
	case CategoryHighSpeed:
		return "sfs"
	default:
		return "unknown"
	}
}

// Rank orders categories by line quality: high speed > main > branch > unknown
func (c TrackCategory) Rank() int {
	switch c {
	case CategoryHighSpeed:
		return 2
	case CategoryMainLine:
		return 1
	case CategoryBranch:
		return 0
	default:
		return -1
	}
}

// CategoryFromGroup maps the numeric path record group to a category.
// Unknown numbers yield CategoryUnknown.
func CategoryFromGroup(group int) TrackCategory {
	switch TrackCategory(group) {
	case CategoryMainLine, CategoryBranch, CategoryHighSpeed:
		return TrackCategory(group)
	default:
		return CategoryUnknown
	}
}

// CategoryFromSpeed derives the category of a track from its maximum
// speed and the infrastructure manager's line classification
func CategoryFromSpeed(maxSpeed int, classification string) TrackCategory {
	switch classification {
	case "Nebenbahn":
		return CategoryBranch
	case "Hauptbahn":
		if maxSpeed >= 250 {
			return CategoryHighSpeed
		}
		return CategoryMainLine
	default:
		return CategoryUnknown
	}
}

var speedPattern = regexp.MustCompile(`(ab (\d+) )?bis (\d+) km/h`)

// ParseSpeed extracts the upper bound of a speed text such as
// "ab 160 bis 200 km/h". It returns 0 when the text does not match.
func ParseSpeed(text string) int {
	m := speedPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[3])
	if err != nil {
		return 0
	}
	return v
}

// Location is a WGS84 coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PathLocation places a station on a route at a kilometre mark
type PathLocation struct {
	RouteNumber int     `json:"routeNumber"`
	Kilometre   float64 `json:"kilometre"`
}

// Platform is a single platform edge of a station
type Platform struct {
	StationNumber int     `json:"stationNumber"`
	Length        float64 `json:"length"`
}

// Station is a physical railway location identified by a set of codes
type Station struct {
	Codes           codes.CodeSet  `json:"codes"`
	Name            string         `json:"name,omitempty"`
	Number          *int           `json:"number,omitempty"`
	StationCategory *int           `json:"stationCategory,omitempty"`
	Kind            string         `json:"kind,omitempty"`
	Location        *Location      `json:"location,omitempty"`
	Platforms       []Platform     `json:"platforms,omitempty"`
	PathLocations   []PathLocation `json:"pathLocations,omitempty"`
	ExplicitGroup   *StationGroup  `json:"group,omitempty"`
}

// Clone returns a copy that shares no slices with s
func (s *Station) Clone() *Station {
	c := *s
	c.Codes = append(codes.CodeSet(nil), s.Codes...)
	c.Platforms = append([]Platform(nil), s.Platforms...)
	c.PathLocations = append([]PathLocation(nil), s.PathLocations...)
	return &c
}

// FirstCode returns the canonical code of the station
func (s *Station) FirstCode() string {
	return s.Codes.First()
}

// Group returns the explicit group if one is set, otherwise the group
// derived from the station category and kind
func (s *Station) Group() StationGroup {
	if s.ExplicitGroup != nil {
		return *s.ExplicitGroup
	}
	if s.StationCategory != nil {
		switch c := *s.StationCategory; {
		case c == 1 || c == 2:
			return GroupKnotStation
		case c == 3:
			return GroupMainStation
		case c >= 4 && c <= 6:
			return GroupBranchStation
		case c == 7:
			return GroupHalt
		}
	}
	if s.Kind == "abzw" {
		return GroupJunction
	}
	return GroupOperatingPoint
}

// PlatformCount returns the number of attached platforms
func (s *Station) PlatformCount() int {
	return len(s.Platforms)
}

// PlatformLength returns the longest attached platform
func (s *Station) PlatformLength() float64 {
	var longest float64
	for _, p := range s.Platforms {
		if p.Length > longest {
			longest = p.Length
		}
	}
	return longest
}

// AddPathLocation records a route position once
func (s *Station) AddPathLocation(loc PathLocation) {
	for _, existing := range s.PathLocations {
		if existing == loc {
			return
		}
	}
	s.PathLocations = append(s.PathLocations, loc)
}

// Waypoint is a point of a planned train route. NextRoute is the route
// number leading to the following waypoint, 0 when unknown.
type Waypoint struct {
	Code      string
	Distance  float64
	Stop      bool
	NextRoute int
}

// Track is a piece of a numbered route as published by the infrastructure
// manager
type Track struct {
	RouteNumber int           `json:"routeNumber"`
	Electrified bool          `json:"electrified"`
	Category    TrackCategory `json:"category"`
	MaxSpeed    int           `json:"maxSpeed"`
	Length      float64       `json:"length"`
	FromKm      *float64      `json:"fromKm,omitempty"`
	ToKm        *float64      `json:"toKm,omitempty"`
}

// TrackPath is the ordered sequence of tracks belonging to one route
type TrackPath struct {
	RouteNumber int     `json:"routeNumber"`
	Tracks      []Track `json:"tracks"`
}

// Length returns the total length of the path
func (p TrackPath) Length() float64 {
	var total float64
	for _, t := range p.Tracks {
		total += t.Length
	}
	return total
}

// DuplicateTrackError reports two tracks of one route starting at the same
// kilometre
type DuplicateTrackError struct {
	RouteNumber int
	FromKm      float64
}

func (e *DuplicateTrackError) Error() string {
	return fmt.Sprintf("route %d has two tracks starting at km %g", e.RouteNumber, e.FromKm)
}

// MergeTracks groups tracks by route number and orders each group by its
// starting kilometre. Tracks without a kilometre mark keep their input
// order after the located ones.
func MergeTracks(tracks []Track) ([]TrackPath, error) {
	byRoute := make(map[int][]Track)
	var order []int
	for _, t := range tracks {
		if _, ok := byRoute[t.RouteNumber]; !ok {
			order = append(order, t.RouteNumber)
		}
		byRoute[t.RouteNumber] = append(byRoute[t.RouteNumber], t)
	}

	paths := make([]TrackPath, 0, len(order))
	for _, number := range order {
		group := byRoute[number]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].FromKm, group[j].FromKm
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return *a < *b
		})
		for i := 1; i < len(group); i++ {
			a, b := group[i-1].FromKm, group[i].FromKm
			if a != nil && b != nil && *a == *b {
				return nil, &DuplicateTrackError{RouteNumber: number, FromKm: *a}
			}
		}
		paths = append(paths, TrackPath{RouteNumber: number, Tracks: group})
	}
	return paths, nil
}
