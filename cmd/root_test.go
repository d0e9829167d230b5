package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/config"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "extract", "analyze", "enrich", "enrich-v2", "export", "import", "datasets", "serve"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestArtifactDir(t *testing.T) {
	base := t.TempDir()
	c := &config.Config{Output: config.OutputConfig{BaseDir: base}}

	key := artifact.Key("62020")
	require.NoError(t, artifact.WriteRows(c.Output.CountyFilterDir(), key, []model.ResolvedRecord{
		{CompanyNumber: "00000001"},
	}, artifact.Meta{Stage: "county_resolve"}))

	dir, err := artifactDir(c, key)
	require.NoError(t, err)
	assert.Equal(t, c.Output.CountyFilterDir(), dir)

	_, err = artifactDir(c, "deadbeef0000")
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
}

func TestBuildEnricher_RequiresKey(t *testing.T) {
	_, err := buildEnricher(&config.Config{})
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))

	_, err = buildDirectoryEngine(&config.Config{})
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
}
