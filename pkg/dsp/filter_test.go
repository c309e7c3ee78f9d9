package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFs = 250.0

func sine(freq, amp float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testFs)
	}
	return x
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestButterBandpassShape(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	assert.Len(t, f.B, 9)
	assert.Len(t, f.A, 9)
	assert.InDelta(t, 1.0, f.A[0], 1e-12)
	assert.Equal(t, 27, f.PadLen())
}

func TestButterBandpassResponse(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	assert.InDelta(t, 0, f.Response(0, testFs), 1e-9, "DC is blocked")
	assert.InDelta(t, 0, f.Response(testFs/2, testFs), 1e-9, "Nyquist is blocked")
	assert.InDelta(t, math.Sqrt2/2, f.Response(8, testFs), 1e-6, "-3 dB at low cutoff")
	assert.InDelta(t, math.Sqrt2/2, f.Response(30, testFs), 1e-6, "-3 dB at high cutoff")
	assert.InDelta(t, 1.0, f.Response(15, testFs), 1e-3)
}

func TestButterBandpassRejectsBadBand(t *testing.T) {
	tests := []struct {
		name      string
		order     int
		low, high float64
	}{
		{"zero order", 0, 8, 30},
		{"negative low", 4, -1, 30},
		{"inverted", 4, 30, 8},
		{"above nyquist", 4, 8, 125},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ButterBandpass(tc.order, tc.low, tc.high, testFs)
			assert.Error(t, err)
		})
	}
}

func TestLFilterFIRAndIIR(t *testing.T) {
	avg := Filter{B: []float64{0.5, 0.5}, A: []float64{1}}
	y, _ := LFilter(avg, []float64{1, 1, 1, 1}, nil)
	assert.InDeltaSlice(t, []float64{0.5, 1, 1, 1}, y, 1e-12)

	decay := Filter{B: []float64{1}, A: []float64{1, -0.5}}
	y, zf := LFilter(decay, []float64{1, 0, 0, 0}, nil)
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.25, 0.125}, y, 1e-12)
	assert.InDelta(t, 0.0625, zf[0], 1e-12)
}

func TestLFilterZiIsSteadyState(t *testing.T) {
	f := Filter{B: []float64{1}, A: []float64{1, -0.5}}
	zi, err := LFilterZi(f)
	require.NoError(t, err)

	// A unit step started from zi stays at its DC gain of 2.
	y, _ := LFilter(f, []float64{1, 1, 1}, zi)
	assert.InDeltaSlice(t, []float64{2, 2, 2}, y, 1e-12)
}

func TestFiltFiltPassesBand(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	y, err := FiltFilt(f, sine(15, 1, 1000))
	require.NoError(t, err)
	require.Len(t, y, 1000)
	assert.InDelta(t, math.Sqrt2/2, rms(y[200:800]), 0.02)
}

func TestFiltFiltRejectsOutOfBand(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	low, err := FiltFilt(f, sine(2, 1, 1000))
	require.NoError(t, err)
	assert.Less(t, rms(low[200:800]), 0.01)

	high, err := FiltFilt(f, sine(60, 1, 1000))
	require.NoError(t, err)
	assert.Less(t, rms(high[200:800]), 0.05)
}

func TestFiltFiltRemovesOffset(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	x := make([]float64, 300)
	for i := range x {
		x[i] = 5
	}
	y, err := FiltFilt(f, x)
	require.NoError(t, err)
	for _, v := range y {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestFiltFiltTooShort(t *testing.T) {
	f, err := ButterBandpass(4, 8, 30, testFs)
	require.NoError(t, err)

	_, err = FiltFilt(f, make([]float64, 27))
	assert.ErrorIs(t, err, ErrSignalTooShort)
}
