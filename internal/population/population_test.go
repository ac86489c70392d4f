package population

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/pkg/overpass"
)

var chennai = geo.Point{Lat: 13.0827, Lon: 80.2707}

type mockWorldPop struct {
	mock.Mock
}

func (m *mockWorldPop) TotalPopulation(ctx context.Context, area *geom.Polygon, year int) (float64, error) {
	args := m.Called(ctx, area, year)
	return args.Get(0).(float64), args.Error(1)
}

// fakeOverpass answers by query shape: residential buildings, commercial
// venues (income proxy) or competitor nodes.
type fakeOverpass struct {
	queries     []string
	buildings   int
	commercial  int
	competitors int
	err         error
}

func (f *fakeOverpass) Query(_ context.Context, q string) ([]overpass.Element, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	n := f.competitors
	switch {
	case strings.Contains(q, `"building"`):
		n = f.buildings
	case strings.Contains(q, "bank"):
		n = f.commercial
	}
	out := make([]overpass.Element, n)
	for i := range out {
		out[i] = overpass.Element{Type: overpass.TypeNode, ID: int64(i + 1), Tags: map[string]string{"name": "x"}}
	}
	return out, nil
}

func (f *fakeOverpass) Count(ctx context.Context, q string) (int, error) {
	els, err := f.Query(ctx, q)
	return len(els), err
}

func TestAnalyze_WorldPop(t *testing.T) {
	wp := &mockWorldPop{}
	wp.On("TotalPopulation", mock.Anything, mock.AnythingOfType("*geom.Polygon"), 2020).Return(50000.0, nil)
	op := &fakeOverpass{commercial: 30, competitors: 5}

	res, err := New(op, wp, nil).Analyze(context.Background(), chennai, "cafe", 2)
	require.NoError(t, err)

	assert.Equal(t, 50000, res.Population)
	assert.Equal(t, SourceWorldPop, res.PopulationSource)
	assert.InDelta(t, 0.8, res.IncomeIndex, 1e-9)
	assert.Equal(t, 5, res.CompetitionCount)
	assert.InDelta(t, 1.2, res.Baseline, 1e-9)
	assert.InDelta(t, 1.28, res.Multiplier, 1e-9)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, "Moderate competition (5 competitors). Viable market.", res.Notes)
	assert.Equal(t, [2]float64{13.0827, 80.2707}, res.Coordinates)
	assert.InDelta(t, 2.0, res.RadiusKM, 1e-9)
	assert.False(t, res.Degraded)

	// WorldPop answered, so no building query was issued.
	require.Len(t, op.queries, 2)
	assert.Contains(t, op.queries[0], `node["amenity"~"restaurant|cafe|bank"](around:2000,13.0827,80.2707)`)
	assert.Contains(t, op.queries[1], `node["amenity"="cafe"](around:2000,13.0827,80.2707)`)
	wp.AssertExpectations(t)
}

func TestAnalyze_BuildingFallbackNoCompetitors(t *testing.T) {
	wp := &mockWorldPop{}
	wp.On("TotalPopulation", mock.Anything, mock.Anything, 2020).Return(0.0, errors.New("worldpop: returned status 500"))
	op := &fakeOverpass{buildings: 100}

	res, err := New(op, wp, nil).Analyze(context.Background(), chennai, "florist", 1)
	require.NoError(t, err)

	assert.Equal(t, 600, res.Population)
	assert.Equal(t, SourceOSMBuildings, res.PopulationSource)
	assert.InDelta(t, 0.5, res.IncomeIndex, 1e-9)
	assert.Equal(t, 0, res.CompetitionCount)
	assert.InDelta(t, 1.8, res.LocalAdjustment, 1e-9)
	assert.InDelta(t, 1.8, res.Multiplier, 1e-9)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Contains(t, res.Notes, "No direct competitors found.")
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{InputPopulation}, res.DegradedInputs)
	assert.Contains(t, op.queries[0], residentialFilter)
	assert.Contains(t, op.queries[2], `node["shop"]`)
}

func TestAnalyze_BuildingFallbackLogsWorldPopError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	wp := &mockWorldPop{}
	wp.On("TotalPopulation", mock.Anything, mock.Anything, 2020).Return(0.0, errors.New("worldpop: returned status 500"))
	op := &fakeOverpass{buildings: 100, competitors: 2}

	_, err := New(op, wp, nil).Analyze(context.Background(), chennai, "florist", 1)
	require.NoError(t, err)

	entries := logs.FilterMessage("population: using fallback").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, InputPopulation, fields["input"])
	assert.Equal(t, "worldpop: returned status 500", fields["error"])
}

func TestAnalyze_ZeroTiersFallToAreaEstimate(t *testing.T) {
	wp := &mockWorldPop{}
	wp.On("TotalPopulation", mock.Anything, mock.Anything, 2020).Return(0.0, nil)
	op := &fakeOverpass{}

	res, err := New(op, wp, nil).Analyze(context.Background(), chennai, "cafe", 2)
	require.NoError(t, err)
	assert.Equal(t, 12566, res.Population)
	assert.Equal(t, SourceAreaEstimate, res.PopulationSource)
}

func TestAnalyze_AllUpstreamsDown(t *testing.T) {
	op := &fakeOverpass{err: errors.New("overpass: returned status 504")}

	res, err := New(op, nil, nil).Analyze(context.Background(), chennai, "gym", 0.1)
	require.NoError(t, err)

	assert.Equal(t, minPopulation, res.Population)
	assert.Equal(t, SourceAreaEstimate, res.PopulationSource)
	assert.InDelta(t, 1.0, res.IncomeIndex, 1e-9)
	assert.InDelta(t, 0.8*1.8, res.Multiplier, 1e-9)
	assert.Equal(t, []string{InputPopulation, InputIncomeIndex, InputCompetitors}, res.DegradedInputs)
	assert.Equal(t, "No direct competitors found. High opportunity but verify local demand.", res.Notes)
}

func TestAnalyze_WithYear(t *testing.T) {
	wp := &mockWorldPop{}
	wp.On("TotalPopulation", mock.Anything, mock.Anything, 2018).Return(9000.0, nil)

	res, err := New(&fakeOverpass{}, wp, nil, WithYear(2018)).Analyze(context.Background(), chennai, "cafe", 1)
	require.NoError(t, err)
	assert.Equal(t, 9000, res.Population)
	wp.AssertExpectations(t)
}

func TestAnalyze_InvalidCoordinate(t *testing.T) {
	_, err := New(nil, nil, nil).Analyze(context.Background(), geo.Point{Lat: 0, Lon: 200}, "cafe", 1)
	require.Error(t, err)
}

func TestLocalAdjustment(t *testing.T) {
	assert.InDelta(t, 1.8, LocalAdjustment(1000, 0), 1e-9)
	assert.InDelta(t, 1.25, LocalAdjustment(500000, 1), 1e-9)
	assert.InDelta(t, 1.0663, LocalAdjustment(0, 1e9), 1e-3)
	assert.InDelta(t, 2.0, LocalAdjustment(1e12, 1), 1e-3)
}

func TestIncomeIndexFromCount(t *testing.T) {
	assert.InDelta(t, 0.5, IncomeIndexFromCount(0), 1e-9)
	assert.InDelta(t, 1.0, IncomeIndexFromCount(50), 1e-9)
	assert.InDelta(t, 1.5, IncomeIndexFromCount(500), 1e-9)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.5, Confidence(100, 0), 1e-9)
	assert.InDelta(t, 0.9, Confidence(100000, 100), 1e-9)
	assert.InDelta(t, 0.8, Confidence(5000, 5), 1e-9)
}

func TestNotes(t *testing.T) {
	assert.Equal(t, "Low competition (2 competitors). Good market conditions.", Notes(2))
	assert.Equal(t, "Moderate competition (3 competitors). Viable market.", Notes(3))
	assert.Equal(t, "High competition (8 competitors). Consider differentiation.", Notes(8))
}
