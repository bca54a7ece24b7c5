package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadBuildsPipelineWithDisabledPassesDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")

	require.NoError(t, os.WriteFile(path, []byte("disable:\n  - inline\n  - prune-unreachable\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"inline", "prune-unreachable"}, cfg.Disable)

	p, err := cfg.Build()
	require.NoError(t, err)

	var names []string
	for _, pass := range p.Passes {
		names = append(names, pass.Name())
	}

	require.NotContains(t, names, "inline")
	require.NotContains(t, names, "prune-unreachable")
	require.Contains(t, names, "flow")
}

func TestBuildRejectsUnknownPassName(t *testing.T) {
	cfg := Config{Disable: []string{"does-not-exist"}}

	_, err := cfg.Build()
	require.Error(t, err)
}

func TestDefaultEnablesEveryPass(t *testing.T) {
	p := Default()
	require.Len(t, p.Passes, 5)
}
