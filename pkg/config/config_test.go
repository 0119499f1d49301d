package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Labels.WindowLow)
	assert.Equal(t, 4, cfg.Labels.WindowHigh)
	assert.Equal(t, 5, cfg.Labels.MinLength)
	assert.Equal(t, 8.0, cfg.Trend.RotCutoff)
	assert.Equal(t, 4.0, cfg.Trend.ShiftCutoff)
	assert.Equal(t, 41.0, cfg.Register.TubulinOffset)
	assert.GreaterOrEqual(t, cfg.Processing.NumWorkers, 1)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Register, cfg.Register)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mirp.yaml")
	cfg := DefaultConfig()
	cfg.Register.Protofilaments = 14
	cfg.Output.PlotFormat = "png"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 14, loaded.Register.Protofilaments)
	assert.Equal(t, "png", loaded.Output.PlotFormat)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trend:\n  rotCutoff: 5\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Trend.RotCutoff)
	assert.Equal(t, 4.0, cfg.Trend.ShiftCutoff)
	assert.Equal(t, 5, cfg.Labels.MinLength)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad yaml":    "labels: [",
		"bad format":  "output:\n  plotFormat: pdf\n",
		"bad cutoff":  "labels:\n  cutoff: 150\n",
		"bad workers": "processing:\n  numWorkers: 0\n",
		"bad rise":    "register:\n  rise: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MIRP_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MIRP_MQTT_TOPIC_PREFIX", "scope1")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "scope1", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "mirp", cfg.MQTT.ClientID)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirp.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tubulinOffset: 41")
}
