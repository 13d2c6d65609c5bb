package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/models"
)

func TestEdgeCost(t *testing.T) {
	main := &graph.Edge{Length: 100, MaxSpeed: 200, Electrified: true, Category: models.CategoryMainLine}

	t.Run("travel time at edge speed", func(t *testing.T) {
		cost := DefaultConfig().EdgeCost(main)
		assert.InDelta(t, 0.5, cost, 1e-9)
	})

	t.Run("speed cap", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxSpeed = 100
		assert.InDelta(t, 1.0, cfg.EdgeCost(main), 1e-9)
	})

	t.Run("distance only", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DistanceOnly = true
		assert.InDelta(t, 100.0, cfg.EdgeCost(main), 1e-9)
	})

	t.Run("missing speed is clamped", func(t *testing.T) {
		e := &graph.Edge{Length: 3, Electrified: true}
		assert.InDelta(t, 3.0, DefaultConfig().EdgeCost(e), 1e-9)
	})

	t.Run("non electrified penalty", func(t *testing.T) {
		e := *main
		e.Electrified = false
		cfg := DefaultConfig()
		assert.InDelta(t, 0.5, cfg.EdgeCost(&e), 1e-9)
		cfg.AcceptNonElectrified = false
		assert.InDelta(t, 0.5*NonElectrifiedPenalty, cfg.EdgeCost(&e), 1e-9)
	})

	t.Run("high speed penalty", func(t *testing.T) {
		e := *main
		e.Category = models.CategoryHighSpeed
		cfg := DefaultConfig()
		assert.InDelta(t, 0.5, cfg.EdgeCost(&e), 1e-9)
		cfg.UseSFS = false
		assert.InDelta(t, 0.5*HighSpeedPenalty, cfg.EdgeCost(&e), 1e-9)
	})

	t.Run("equipment penalty", func(t *testing.T) {
		e := *main
		e.Equipments = []string{"ETCS", "LZB"}
		cfg := DefaultConfig()
		cfg.AvoidEquipments = []string{"ETCS"}
		assert.InDelta(t, 0.5*EquipmentPenalty, cfg.EdgeCost(&e), 1e-9)
	})

	t.Run("penalties multiply", func(t *testing.T) {
		e := graph.Edge{Length: 100, MaxSpeed: 200, Category: models.CategoryHighSpeed, Equipments: []string{"ETCS"}}
		cfg := Config{AvoidEquipments: []string{"ETCS"}}
		assert.InDelta(t, 0.5*20*5*20, cfg.EdgeCost(&e), 1e-6)
	})
}

func TestConfigKey(t *testing.T) {
	a := Config{AvoidEquipments: []string{"LZB", "ETCS"}}
	b := Config{AvoidEquipments: []string{"ETCS", "LZB"}, Policy: PolicyStrictDegree}
	assert.Equal(t, a.Key(), b.Key())

	c := a
	c.FullPath = true
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestPresets(t *testing.T) {
	presets := DefaultPresets()

	tests := []struct {
		name    string
		service int
		useSFS  bool
	}{
		{"high_speed", ServiceHighSpeed, true},
		{"intercity", ServiceIntercity, true},
		{"regional", ServiceRegional, false},
		{"freight", ServiceFreight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, ok := presets.GetPreset(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.service, preset.Service)
			assert.Equal(t, tt.useSFS, presets.ForService(tt.service, Config{}).UseSFS)
		})
	}

	t.Run("unknown service falls back", func(t *testing.T) {
		fallback := Config{MaxSpeed: 42}
		assert.Equal(t, fallback, presets.ForService(99, fallback))
	})

	t.Run("unknown name", func(t *testing.T) {
		_, ok := presets.GetPreset("maglev")
		assert.False(t, ok)
	})
}

func TestLoadPresets(t *testing.T) {
	t.Run("overrides built-in service", func(t *testing.T) {
		input := `
presets:
  - name: regional_slow
    service: 2
    config:
      accept_non_electrified: false
      max_speed: 120
      avoid_equipments: [ETCS]
`
		presets, err := LoadPresets(strings.NewReader(input))
		require.NoError(t, err)

		cfg := presets.ForService(ServiceRegional, Config{})
		assert.Equal(t, 120, cfg.MaxSpeed)
		assert.False(t, cfg.AcceptNonElectrified)
		assert.Equal(t, []string{"ETCS"}, cfg.AvoidEquipments)
		assert.Equal(t, PolicyStrictDegree, cfg.Policy)

		_, ok := presets.GetPreset("high_speed")
		assert.True(t, ok)
	})

	t.Run("empty document yields defaults", func(t *testing.T) {
		presets, err := LoadPresets(strings.NewReader(""))
		require.NoError(t, err)
		assert.Len(t, presets, len(DefaultPresets()))
	})

	t.Run("invalid policy", func(t *testing.T) {
		input := `
presets:
  - name: broken
    service: 1
    config:
      policy: sometimes
`
		_, err := LoadPresets(strings.NewReader(input))
		assert.Error(t, err)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := LoadPresets(strings.NewReader("presets:\n  - service: 1\n"))
		assert.Error(t, err)
	})
}
