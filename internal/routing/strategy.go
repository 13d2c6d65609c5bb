package routing

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/models"
)

// Weight multipliers applied on top of travel time
const (
	NonElectrifiedPenalty = 20
	HighSpeedPenalty      = 5
	EquipmentPenalty      = 20

	// WaypointWeight is forced onto edges leading into a waypoint that is
	// not part of the current leg
	WaypointWeight = 999999.0

	// unlimitedSpeed stands in for "no speed cap"
	unlimitedSpeed = 5000
)

// CompressionPolicy decides which intermediate stations survive compression
type CompressionPolicy string

const (
	// PolicyStrictDegree keeps stations whose degree is not two
	PolicyStrictDegree CompressionPolicy = "strict_degree"
	// PolicyKeepJunctionNeighbours additionally keeps degree two stations
	// adjacent to a junction
	PolicyKeepJunctionNeighbours CompressionPolicy = "keep_junction_neighbours"
)

// Config controls how edges are weighted and how the result is shaped
type Config struct {
	UseSFS               bool              `yaml:"use_sfs" json:"useSfs" mapstructure:"use_sfs"`
	AcceptNonElectrified bool              `yaml:"accept_non_electrified" json:"acceptNonElectrified" mapstructure:"accept_non_electrified"`
	AvoidEquipments      []string          `yaml:"avoid_equipments" json:"avoidEquipments,omitempty" mapstructure:"avoid_equipments"`
	MaxSpeed             int               `yaml:"max_speed" json:"maxSpeed,omitempty" mapstructure:"max_speed" validate:"gte=0"`
	DistanceOnly         bool              `yaml:"distance_only" json:"distanceOnly,omitempty" mapstructure:"distance_only"`
	FullPath             bool              `yaml:"full_path" json:"fullPath,omitempty" mapstructure:"full_path"`
	Policy               CompressionPolicy `yaml:"policy" json:"policy,omitempty" mapstructure:"policy" validate:"omitempty,oneof=strict_degree keep_junction_neighbours"`
}

// DefaultConfig returns the configuration used when nothing else is given
func DefaultConfig() Config {
	return Config{
		UseSFS:               true,
		AcceptNonElectrified: true,
		Policy:               PolicyStrictDegree,
	}
}

func (c Config) effectiveSpeed() float64 {
	if c.DistanceOnly {
		return 1
	}
	if c.MaxSpeed <= 0 {
		return unlimitedSpeed
	}
	return float64(c.MaxSpeed)
}

func (c Config) avoids(equipments []string) bool {
	for _, avoided := range c.AvoidEquipments {
		for _, e := range equipments {
			if e == avoided {
				return true
			}
		}
	}
	return false
}

// EdgeCost returns the travel time of e with the configured penalties.
// Waypoint and visited-node rules are applied by the search itself.
func (c Config) EdgeCost(e *graph.Edge) float64 {
	speed := math.Min(math.Max(1, float64(e.MaxSpeed)), c.effectiveSpeed())
	cost := e.Length / speed

	if !c.AcceptNonElectrified && !e.Electrified {
		cost *= NonElectrifiedPenalty
	}
	if !c.UseSFS && e.Category == models.CategoryHighSpeed {
		cost *= HighSpeedPenalty
	}
	if c.avoids(e.Equipments) {
		cost *= EquipmentPenalty
	}
	return cost
}

// Key returns a stable textual form used to key cached results
func (c Config) Key() string {
	avoid := append([]string(nil), c.AvoidEquipments...)
	sort.Strings(avoid)
	policy := c.Policy
	if policy == "" {
		policy = PolicyStrictDegree
	}
	return strings.Join([]string{
		"sfs=" + strconv.FormatBool(c.UseSFS),
		"nonel=" + strconv.FormatBool(c.AcceptNonElectrified),
		"avoid=" + strings.Join(avoid, "+"),
		"vmax=" + strconv.Itoa(c.MaxSpeed),
		"dist=" + strconv.FormatBool(c.DistanceOnly),
		"full=" + strconv.FormatBool(c.FullPath),
		"policy=" + string(policy),
	}, ";")
}
