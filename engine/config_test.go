package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearImageryEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"IMAGERY_OUT_DIR", "IMAGERY_SOUNDS_DIR", "IMAGERY_TRIGGER_DEVICE", "IMAGERY_MARKER_DEVICE", "IMAGERY_FULLSCREEN"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearImageryEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "imagery.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	clearImageryEnv(t)
	path := writeFile(t, "imagery.yaml", `
screen_width: 1920
screen_height: 1080
fullscreen: true
fixation_duration: 30s
block_duration: 30s
bg_color: "10,20,30"
abort_keys: [escape]
blocks_per_condition: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1920, cfg.ScreenWidth)
	assert.True(t, cfg.Fullscreen)
	assert.Equal(t, 30*time.Second, cfg.FixationDuration)
	assert.Equal(t, 30*time.Second, cfg.BlockDuration)
	assert.Equal(t, Color{R: 10, G: 20, B: 30, A: 255}, cfg.BGColor)
	assert.Equal(t, []string{"escape"}, cfg.AbortKeys)
	assert.Equal(t, 5, cfg.BlocksPerCond)

	// untouched keys keep their defaults
	assert.Equal(t, 3*time.Second, cfg.EndMessageDuration)
	assert.Equal(t, "myLogFile.log", cfg.LogName)
}

func TestLoad_BadColor(t *testing.T) {
	clearImageryEnv(t)
	path := writeFile(t, "imagery.yaml", "text_color: white\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid color")
}

func TestConfig_SaveLoadKeepsDurations(t *testing.T) {
	clearImageryEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "imagery.yaml")

	cfg := DefaultConfig()
	cfg.BlockDuration = 30 * time.Second
	cfg.FixationColor = Color{R: 255, A: 128}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("trigger device switches to serial", func(t *testing.T) {
		clearImageryEnv(t)
		t.Setenv("IMAGERY_TRIGGER_DEVICE", "/dev/ttyUSB0")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, TriggerSerial, cfg.TriggerSource)
		assert.Equal(t, "/dev/ttyUSB0", cfg.TriggerDevice)
	})

	t.Run("paths and fullscreen", func(t *testing.T) {
		clearImageryEnv(t)
		t.Setenv("IMAGERY_OUT_DIR", "/data/out")
		t.Setenv("IMAGERY_SOUNDS_DIR", "/data/in")
		t.Setenv("IMAGERY_FULLSCREEN", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/data/out", cfg.OutputDir)
		assert.Equal(t, "/data/in", cfg.SoundsDir)
		assert.True(t, cfg.Fullscreen)
	})

	t.Run("unparsable fullscreen is ignored", func(t *testing.T) {
		clearImageryEnv(t)
		t.Setenv("IMAGERY_FULLSCREEN", "sometimes")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Fullscreen)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"screen", func(c *Config) { c.ScreenWidth = 0 }, "screen size"},
		{"blocks", func(c *Config) { c.BlocksPerCond = 0 }, "blocks_per_condition"},
		{"durations", func(c *Config) { c.BlockDuration = 0 }, "block_duration"},
		{"serial without device", func(c *Config) { c.TriggerSource = TriggerSerial }, "trigger_device"},
		{"unknown trigger", func(c *Config) { c.TriggerSource = "ttl" }, "invalid trigger_source"},
		{"no abort keys", func(c *Config) { c.AbortKeys = nil }, "abort key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfig_ConditionsResolveSoundPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SoundsDir = "/stimuli"

	conds, err := cfg.Conditions()
	require.NoError(t, err)
	require.Len(t, conds, 3)
	assert.Equal(t, filepath.Join("/stimuli", "tennis.wav"), conds[0].SoundFile)
	assert.Equal(t, filepath.Join("/stimuli", "room.wav"), conds[1].SoundFile)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("1, 2, 3, 4")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 1, G: 2, B: 3, A: 4}, c)
	assert.Equal(t, "1,2,3,4", c.String())

	_, err = ParseColor("256,0,0")
	assert.Error(t, err)
	_, err = ParseColor("0,0")
	assert.Error(t, err)
}
