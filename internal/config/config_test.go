package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "learner.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTemp(t, `
query_threshold = 0.95
completeness_threshold = 0.9
enforce_quiescence_reduced = false
print_level = 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.QueryThreshold)
	assert.Equal(t, 0.9, cfg.CompletenessThreshold)
	assert.False(t, cfg.EnforceQuiescenceReduced)
	assert.Equal(t, PrintLevelDebug, cfg.PrintLevel)
	// Fields absent from the file keep Default's values.
	assert.True(t, cfg.EnableReset)
}

func TestLoadRejectsUnrecognizedKeys(t *testing.T) {
	path := writeTemp(t, `typo_field = true`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	path := writeTemp(t, `query_threshold = 1.5`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestMustLoadPanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.toml")) })
}
