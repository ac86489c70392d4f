package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tb := Default()

	v, ok := tb.CountryDensity.Lookup("IN")
	require.True(t, ok)
	assert.Equal(t, 464.0, v)
	assert.Equal(t, 15.0, tb.CountryDensity.Get("NO"))
	assert.Equal(t, 100.0, tb.CountryDensity.Get("ZZ"))

	assert.Equal(t, 0.3, tb.RentIndex.Get("Switzerland"))
	assert.Equal(t, 0.7, tb.RentIndex.Get("Atlantis"))

	assert.Equal(t, 0.85, tb.RegulatoryIndex.Get("HK"))
	assert.Equal(t, 0.5, tb.RegulatoryIndex.Get("ZZ"))

	assert.Equal(t, 0.9, tb.MarketAdjustments.Get("cafe"))
	assert.Equal(t, 1.0, tb.MarketAdjustments.Get("florist"))

	assert.Equal(t, 1.5, tb.BaselineMultipliers.Get("supermarket"))
	assert.Equal(t, 1.0, tb.BaselineMultipliers.Get("florist"))

	assert.Equal(t, `["leisure"="fitness_centre"]`, tb.OSMTags.Get("gym"))
	assert.Equal(t, `["shop"]`, tb.OSMTags.Get("florist"))
}

func TestSeasonality(t *testing.T) {
	s := Default().Seasonality

	tests := []struct {
		businessType string
		month        int
		pattern      string
		want         float64
	}{
		{"cafe", 2, "restaurant", 0.7},
		{"supermarket", 12, "retail", 1.0},
		{"gym", 6, "default", 0.8},
		{"florist", 1, "default", 0.8},
		{"ice_cream", 3, "ice_cream", 0.9},
		{"ski_resort", 7, "ski_resort", 0.1},
		{"beach_resort", 6, "beach_resort", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.businessType, func(t *testing.T) {
			assert.Equal(t, tt.pattern, s.PatternName(tt.businessType))
			got, err := s.Factor(tt.businessType, tt.month)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Factor("cafe", 13)
	assert.Error(t, err)
}

func TestLoad_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	content := `
tables:
  country_density:
    default: 50
    values:
      us: 40
  seasonality:
    patterns:
      default: [1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1]
  osm_tags:
    default: '["shop"]'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, tb.CountryDensity.Get("US"), "country codes are upper-cased")
	assert.Equal(t, 50.0, tb.CountryDensity.Get("ZZ"))
	assert.Equal(t, 119.0, tb.CountryDensity.Get("FR"))

	f, err := tb.Seasonality.Factor("florist", 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)
	assert.Equal(t, "restaurant", tb.Seasonality.PatternName("cafe"))
}

func TestLoad_MergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	content := `
tables:
  country_density:
    values:
      in: 500
      xx: 10
  regulatory_index:
    values:
      hk: 0.9
  market_adjustments:
    values:
      florist: 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := Load(path)
	require.NoError(t, err)
	def := Default()

	assert.Equal(t, 100.0, tb.CountryDensity.Default)
	assert.Equal(t, 100.0, tb.CountryDensity.Get("ZZ"))
	assert.Equal(t, 500.0, tb.CountryDensity.Get("IN"))
	assert.Equal(t, 10.0, tb.CountryDensity.Get("XX"))
	assert.Equal(t, 36.0, tb.CountryDensity.Get("US"))
	assert.Equal(t, 0.9, tb.RegulatoryIndex.Get("HK"))
	assert.Equal(t, 0.5, tb.RegulatoryIndex.Get("ZZ"))

	assert.Equal(t, 0.8, tb.MarketAdjustments.Get("florist"))
	assert.Equal(t, 0.9, tb.MarketAdjustments.Get("cafe"))
	assert.Equal(t, 1.0, tb.MarketAdjustments.Default)

	assert.Equal(t, def.RentIndex, tb.RentIndex)
	assert.Equal(t, def.Seasonality, tb.Seasonality)
	assert.Equal(t, def.OSMTags, tb.OSMTags)
	assert.Equal(t, def.BaselineMultipliers, tb.BaselineMultipliers)
}

func TestLoad_Empty(t *testing.T) {
	tb, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().RentIndex, tb.RentIndex)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tables: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	short := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(short, []byte(`
tables:
  seasonality:
    patterns:
      default: [0.8, 0.8]
  osm_tags:
    default: '["shop"]'
`), 0o644))
	_, err = Load(short)
	assert.Error(t, err)

	unknownPattern := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknownPattern, []byte(`
tables:
  seasonality:
    business_types:
      cafe: monsoon
`), 0o644))
	_, err = Load(unknownPattern)
	assert.Error(t, err)
}
