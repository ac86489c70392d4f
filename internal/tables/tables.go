// Package tables holds the static lookup tables behind the scorers: country
// densities, rent and regulatory indices, seasonality patterns, business-type
// multipliers and Overpass tag filters. The defaults are embedded; a YAML file
// with the same layout can replace them.
package tables

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultYAML []byte

// Tables is the full set of lookup tables.
type Tables struct {
	CountryDensity      FloatTable       `yaml:"country_density"`
	RentIndex           FloatTable       `yaml:"rent_index"`
	RegulatoryIndex     FloatTable       `yaml:"regulatory_index"`
	Seasonality         SeasonalityTable `yaml:"seasonality"`
	MarketAdjustments   FloatTable       `yaml:"market_adjustments"`
	BaselineMultipliers FloatTable       `yaml:"baseline_multipliers"`
	OSMTags             StringTable      `yaml:"osm_tags"`
}

// FloatTable maps a key to a value with a default for unknown keys.
type FloatTable struct {
	Default float64            `yaml:"default"`
	Values  map[string]float64 `yaml:"values"`
}

// Lookup returns the value for key and whether it was present.
func (t FloatTable) Lookup(key string) (float64, bool) {
	v, ok := t.Values[key]
	return v, ok
}

// Get returns the value for key, or the table default.
func (t FloatTable) Get(key string) float64 {
	if v, ok := t.Values[key]; ok {
		return v
	}
	return t.Default
}

// StringTable maps a key to a string with a default for unknown keys.
type StringTable struct {
	Default string            `yaml:"default"`
	Values  map[string]string `yaml:"values"`
}

// Get returns the value for key, or the table default.
func (t StringTable) Get(key string) string {
	if v, ok := t.Values[key]; ok {
		return v
	}
	return t.Default
}

// SeasonalityTable holds monthly patterns and the business-type mapping.
type SeasonalityTable struct {
	Patterns      map[string][]float64 `yaml:"patterns"`
	BusinessTypes map[string]string    `yaml:"business_types"`
}

// defaultPattern is the pattern name used for unmapped business types.
const defaultPattern = "default"

// PatternName returns the seasonality pattern for a business type. A type
// that is itself a pattern name selects that pattern.
func (s SeasonalityTable) PatternName(businessType string) string {
	if p, ok := s.BusinessTypes[businessType]; ok {
		return p
	}
	if _, ok := s.Patterns[businessType]; ok {
		return businessType
	}
	return defaultPattern
}

// Factor returns the seasonality factor for a business type in month (1-12).
func (s SeasonalityTable) Factor(businessType string, month int) (float64, error) {
	name := s.PatternName(businessType)
	pattern, ok := s.Patterns[name]
	if !ok {
		return 0, eris.Errorf("tables: seasonality pattern %q not found", name)
	}
	if month < 1 || month > len(pattern) {
		return 0, eris.Errorf("tables: month %d outside pattern %q", month, name)
	}
	return pattern[month-1], nil
}

// Default returns the embedded tables.
func Default() *Tables {
	t, err := parse(defaultYAML, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads tables from path and merges them onto the embedded defaults:
// tables, defaults and keys the file leaves out keep their embedded values.
// An empty path returns the embedded defaults.
func Load(path string) (*Tables, error) {
	if path == "" {
		return parse(defaultYAML, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: read %s", path)
	}
	return parse(data, Default())
}

// parse decodes data onto base, or onto empty tables when base is nil.
// base is modified.
func parse(data []byte, base *Tables) (*Tables, error) {
	// The YAML has a top-level "tables" key
	var wrapper struct {
		Tables Tables `yaml:"tables"`
	}
	var density, regulatory map[string]float64
	if base != nil {
		wrapper.Tables = *base
		density, regulatory = base.CountryDensity.Values, base.RegulatoryIndex.Values
		wrapper.Tables.CountryDensity.Values = nil
		wrapper.Tables.RegulatoryIndex.Values = nil
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "tables: parse")
	}
	t := &wrapper.Tables
	// Country codes are matched upper-case.
	t.CountryDensity.Values = mergeUpper(density, t.CountryDensity.Values)
	t.RegulatoryIndex.Values = mergeUpper(regulatory, t.RegulatoryIndex.Values)
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tables) validate() error {
	if _, ok := t.Seasonality.Patterns[defaultPattern]; !ok {
		return eris.New("tables: seasonality.patterns.default is required")
	}
	for name, p := range t.Seasonality.Patterns {
		if len(p) != 12 {
			return eris.Errorf("tables: seasonality pattern %q has %d months, want 12", name, len(p))
		}
	}
	for bt, name := range t.Seasonality.BusinessTypes {
		if _, ok := t.Seasonality.Patterns[name]; !ok {
			return eris.Errorf("tables: business type %q maps to unknown pattern %q", bt, name)
		}
	}
	if t.OSMTags.Default == "" {
		return eris.New("tables: osm_tags.default is required")
	}
	return nil
}

// mergeUpper upper-cases the keys of base and override into one map.
// override wins.
func mergeUpper(base, override map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(override))
	for k, v := range base {
		out[strings.ToUpper(k)] = v
	}
	for k, v := range override {
		out[strings.ToUpper(k)] = v
	}
	return out
}
