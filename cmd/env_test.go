package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scorer/internal/config"
)

func TestInitEnv(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)

	env, err := initEnv(c)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Nominatim)
	assert.Equal(t, "cascade", env.Geocoder.Name())
	assert.NotNil(t, env.Traffic)
	assert.NotNil(t, env.Market)
	assert.NotNil(t, env.Population)
	assert.NotNil(t, env.Income)
	assert.NotNil(t, env.Competitors)
	assert.NotNil(t, env.Culture)
	assert.NotNil(t, env.Pipeline)
	assert.Equal(t, 2020, env.IncomeOptions.StartYear)
	assert.Equal(t, 2022, env.IncomeOptions.EndYear)
	assert.Equal(t, 5, env.IncomeOptions.SamplePoints)
}

func TestInitEnv_MissingTables(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)
	c.Tables.Path = "testdata/does-not-exist.yaml"

	_, err = initEnv(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load tables")
}
