package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("subcommand %q not registered", name)
	return nil
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"analyze", "traffic", "income", "competitors", "culture", "market", "population", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "site-scorer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	defaults := map[string]string{
		"lat":           "40.7128",
		"lon":           "-74.006",
		"business-type": "supermarket",
		"radius-km":     "2",
		"place":         "",
		"format":        "json",
	}
	for name, def := range defaults {
		flag := analyzeCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "analyze should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, "--%s default", name)
	}
	assert.Equal(t, "true", analyzeCmd.Annotations[jsonErrorsAnnotation])
}

func TestScoreCommands_RadiusDefaults(t *testing.T) {
	tests := map[string]string{
		"traffic":     "1",
		"income":      "2",
		"competitors": "2",
		"culture":     "10",
		"market":      "5",
		"population":  "2",
	}
	for name, def := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(t, name)
			flag := cmd.Flags().Lookup("radius-km")
			require.NotNil(t, flag)
			assert.Equal(t, def, flag.DefValue)
			assert.NotNil(t, cmd.Flags().Lookup("place"))
			assert.Equal(t, "true", cmd.Annotations[jsonErrorsAnnotation])
		})
	}
}

func TestCompetitorsCommand_FlatFlag(t *testing.T) {
	flag := findCommand(t, "competitors").Flags().Lookup("flat")
	require.NotNil(t, flag, "competitors should have --flat flag")
	assert.Equal(t, "false", flag.DefValue)

	assert.Nil(t, findCommand(t, "traffic").Flags().Lookup("flat"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.Empty(t, serveCmd.Annotations[jsonErrorsAnnotation])
}

func TestSiteArgs(t *testing.T) {
	assert.NoError(t, siteArgs(analyzeCmd, nil))
	assert.NoError(t, siteArgs(analyzeCmd, []string{"13.08", "80.27", "cafe", "1"}))
	assert.Error(t, siteArgs(analyzeCmd, []string{"13.08", "80.27"}))
}
