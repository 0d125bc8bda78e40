package advisory

import (
	"math"
	"testing"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	for _, p := range air.Pollutants() {
		thr := p.Threshold()

		atLimit, err := Evaluate(p, thr)
		require.NoError(t, err)
		assert.Equal(t, Safe, atLimit.Level, "%s at threshold", p)

		for _, eps := range []float64{1e-9, 0.01, 1, 1000} {
			above, err := Evaluate(p, thr+eps)
			require.NoError(t, err)
			assert.Equal(t, High, above.Level, "%s at threshold+%g", p, eps)
		}

		below, err := Evaluate(p, math.Nextafter(thr, 0))
		require.NoError(t, err)
		assert.False(t, below.High())
	}
}

func TestEvaluate_Messages(t *testing.T) {
	v, err := Evaluate(air.PM25, 34.1054)
	require.NoError(t, err)
	assert.Equal(t, "WARNING: PM2.5 levels are HIGH (34.11 µg/m³). Limit outdoor activities and wear a mask.", v.Message)
	assert.Equal(t, 15.0, v.Threshold)

	v, err = Evaluate(air.PM25, 15)
	require.NoError(t, err)
	assert.Equal(t, "PM2.5 levels are safe (15.00 µg/m³). No major health risks.", v.String())
}

func TestEvaluate_UnknownPollutant(t *testing.T) {
	_, err := Evaluate(air.Pollutant(42), 1)
	require.ErrorIs(t, err, air.ErrUnknownPollutant)

	_, err = EvaluateSymbol("CH4", 0)
	require.ErrorIs(t, err, air.ErrUnknownPollutant)
}

func TestEvaluateSymbol(t *testing.T) {
	v, err := EvaluateSymbol("no2", 25.5)
	require.NoError(t, err)
	assert.Equal(t, air.NO2, v.Pollutant)
	assert.True(t, v.High())
}
