package routing

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Service levels of tasks
const (
	ServiceHighSpeed        = 0
	ServiceIntercity        = 1
	ServiceRegional         = 2
	ServiceCommuter         = 3
	ServiceSpecial          = 4
	ServiceFreightImportant = 10
	ServiceFreight          = 11
)

// Preset is a named configuration bound to a task service level
type Preset struct {
	Name    string `yaml:"name" validate:"required"`
	Service int    `yaml:"service" validate:"gte=0"`
	Config  Config `yaml:"config"`
}

// Presets holds one configuration per service level
type Presets map[int]Preset

// DefaultPresets returns the built-in per-service configurations
func DefaultPresets() Presets {
	presets := []Preset{
		{Name: "high_speed", Service: ServiceHighSpeed, Config: Config{UseSFS: true}},
		{Name: "intercity", Service: ServiceIntercity, Config: Config{UseSFS: true, AcceptNonElectrified: true}},
		{Name: "regional", Service: ServiceRegional, Config: Config{AcceptNonElectrified: true, MaxSpeed: 160}},
		{Name: "commuter", Service: ServiceCommuter, Config: Config{AcceptNonElectrified: true, MaxSpeed: 140}},
		{Name: "special", Service: ServiceSpecial, Config: Config{UseSFS: true, AcceptNonElectrified: true}},
		{Name: "freight_important", Service: ServiceFreightImportant, Config: Config{AcceptNonElectrified: true, MaxSpeed: 120}},
		{Name: "freight", Service: ServiceFreight, Config: Config{AcceptNonElectrified: true, MaxSpeed: 100, DistanceOnly: true}},
	}

	out := make(Presets, len(presets))
	for _, p := range presets {
		p.Config.Policy = PolicyStrictDegree
		out[p.Service] = p
	}
	return out
}

// GetPreset returns a preset by name
func (p Presets) GetPreset(name string) (Preset, bool) {
	for _, preset := range p {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}

// ForService returns the configuration for a service level, or fallback
// when the level has no preset
func (p Presets) ForService(service int, fallback Config) Config {
	if preset, ok := p[service]; ok {
		return preset.Config
	}
	return fallback
}

type presetFile struct {
	Presets []Preset `yaml:"presets" validate:"dive"`
}

// LoadPresets reads presets from YAML. Entries override the built-in
// preset of the same service level.
func LoadPresets(r io.Reader) (Presets, error) {
	var file presetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid presets: %w", err)
	}

	presets := DefaultPresets()
	for _, p := range file.Presets {
		if p.Config.Policy == "" {
			p.Config.Policy = PolicyStrictDegree
		}
		presets[p.Service] = p
	}
	return presets, nil
}

// LoadPresetsFile reads presets from a YAML file. An empty path yields the
// built-in presets.
func LoadPresetsFile(path string) (Presets, error) {
	if path == "" {
		return DefaultPresets(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets: %w", err)
	}
	defer f.Close()
	return LoadPresets(f)
}
