package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Engine.MaxTriggerSweeps)
	assert.Equal(t, 1000, cfg.Engine.MaxStackSteps)
	assert.True(t, cfg.Engine.TargetCache)
	assert.Equal(t, 512, cfg.Engine.LabelCacheSize)
	assert.Equal(t, "data/cards.yaml", cfg.Catalog.Path)
	assert.Empty(t, cfg.Scenario.Path)
	assert.Empty(t, cfg.Scenario.ReplayDir)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
engine:
  max_stack_steps: 50
  target_cache: false
catalog:
  path: cards.yaml
scenario:
  path: play.yaml
  replay_dir: replays
`)
	t.Setenv("OPCG_ENGINE_MAX_TRIGGER_SWEEPS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 50, cfg.Engine.MaxStackSteps)
	assert.Equal(t, 7, cfg.Engine.MaxTriggerSweeps)
	assert.False(t, cfg.Engine.TargetCache)
	assert.Equal(t, "cards.yaml", cfg.Catalog.Path)
	assert.Equal(t, "play.yaml", cfg.Scenario.Path)
	assert.Equal(t, "replays", cfg.Scenario.ReplayDir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"level":  "logging:\n  level: loud\n",
		"format": "logging:\n  format: xml\n",
		"sweeps": "engine:\n  max_trigger_sweeps: 0\n",
		"steps":  "engine:\n  max_stack_steps: -1\n",
		"labels": "engine:\n  label_cache_size: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
