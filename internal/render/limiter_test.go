package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitBrightnessBudgetClamp(t *testing.T) {
	// 10 LEDs all white: 10 * (80+55+75+5) = 2150 mW at full scale.
	buf := make([]Color, 10)
	for i := range buf {
		buf[i] = White
	}
	unscaled := DefaultPowerModel.Unscaled(buf)
	assert.InDelta(t, 2150, unscaled, 0.01)

	b, limited := LimitBrightness(unscaled, 255, 1000)
	assert.True(t, limited)
	assert.LessOrEqual(t, unscaled*float64(b)/255, 1000.0)
	// One step brighter must bust the budget, so the clamp is tight.
	assert.Greater(t, unscaled*float64(b+1)/255, 1000.0)
}

func TestLimitBrightnessUnderBudget(t *testing.T) {
	b, limited := LimitBrightness(500, 128, 1000)
	assert.False(t, limited)
	assert.Equal(t, uint8(128), b)
}

func TestLimitBrightnessDisabled(t *testing.T) {
	b, limited := LimitBrightness(1e6, 200, 0)
	assert.False(t, limited)
	assert.Equal(t, uint8(200), b)
}

func TestPowerModelScaled(t *testing.T) {
	buf := []Color{{R: 255}}
	assert.InDelta(t, 85, DefaultPowerModel.Unscaled(buf), 0.001)
	assert.InDelta(t, 17, DefaultPowerModel.Scaled(buf, 51), 0.001)
	assert.InDelta(t, 0, DefaultPowerModel.Scaled(buf, 0), 0.001)
}

func TestScale8(t *testing.T) {
	assert.Equal(t, uint8(200), scale8(200, 255))
	assert.Equal(t, uint8(0), scale8(200, 0))
	assert.Equal(t, uint8(100), scale8(200, 127))
}
