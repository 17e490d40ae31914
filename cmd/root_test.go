package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"build", "export", "runs", "scopes"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "camdb", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestBuildCommand_Flags(t *testing.T) {
	for _, name := range []string{"type", "state", "output", "combined", "meta", "plan"} {
		require.NotNil(t, buildCmd.Flags().Lookup(name), "build command should have --%s flag", name)
	}
	assert.Equal(t, "all", buildCmd.Flags().Lookup("type").DefValue)
	assert.Equal(t, "false", buildCmd.Flags().Lookup("meta").DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "geojson", flag.DefValue)
}
