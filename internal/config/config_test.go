package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	assert.Equal(t, 20*time.Millisecond, Default().FrameInterval())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: spi
max_lights: 60
power:
  budget_mw: 2500
strip:
  reverse: true
display:
  enabled: true
  interval: 500ms
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spi", c.Driver)
	assert.Equal(t, 60, c.MaxLights)
	assert.Equal(t, 2500.0, c.Power.BudgetMW)
	assert.True(t, c.Strip.Reverse)
	assert.Equal(t, 500*time.Millisecond, c.Display.Interval)
	// Untouched keys keep their defaults.
	assert.Equal(t, uint8(128), c.Brightness)
	assert.Equal(t, "XmasLights_001", c.Link.LocalName)
	assert.True(t, c.Link.PauseWhileConnected)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Default(), c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = "fake"
	c.Strip.Offset = 12
	require.NoError(t, Save(path, c))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidateCollectsErrors(t *testing.T) {
	c := Default()
	c.Driver = "dmx"
	c.MaxLights = 0
	c.FPS = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver")
	assert.Contains(t, err.Error(), "max_lights")
	assert.Contains(t, err.Error(), "fps")
}

func TestValidateSeparateListeners(t *testing.T) {
	c := Default()
	assert.NotEqual(t, c.HTTP.Addr, c.Link.Addr)
	c.Link.Addr = c.HTTP.Addr
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadCometRandomFade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("comet_random_fade: true\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.CometRandomFade)
	assert.False(t, Default().CometRandomFade)
}
