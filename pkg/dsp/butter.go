// Package dsp provides IIR filter design and zero-phase filtering for sampled signals.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrSignalTooShort is returned when a signal cannot be padded for forward-backward filtering.
var ErrSignalTooShort = errors.New("signal too short for filter padding")

// Filter holds digital transfer function coefficients, highest power first.
// A[0] is normalized to 1.
type Filter struct {
	B []float64
	A []float64
}

// ButterBandpass designs an order-n digital Butterworth band-pass filter with
// cutoffs lowHz and highHz at sample rate fs. The resulting filter has 2n poles.
func ButterBandpass(order int, lowHz, highHz, fs float64) (Filter, error) {
	if order < 1 {
		return Filter{}, fmt.Errorf("invalid filter order %d", order)
	}
	nyq := fs / 2
	if lowHz <= 0 || highHz <= lowHz || highHz >= nyq {
		return Filter{}, fmt.Errorf("invalid band %.2f-%.2f Hz for fs=%.1f", lowHz, highHz, fs)
	}

	// Analog prototype poles on the unit circle, no zeros, unity gain.
	proto := make([]complex128, order)
	for i := range proto {
		m := float64(-order + 1 + 2*i)
		proto[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// Pre-warp the normalized band edges (design sample rate of 2).
	const designFs = 2.0
	warpedLow := 2 * designFs * math.Tan(math.Pi*(lowHz/nyq)/designFs)
	warpedHigh := 2 * designFs * math.Tan(math.Pi*(highHz/nyq)/designFs)
	bw := warpedHigh - warpedLow
	wo := math.Sqrt(warpedLow * warpedHigh)

	// Low-pass to band-pass: every pole splits in two, n zeros land at the origin.
	poles := make([]complex128, 0, 2*order)
	shifted := make([]complex128, order)
	roots := make([]complex128, order)
	for i, p := range proto {
		shifted[i] = p * complex(bw/2, 0)
		roots[i] = cmplx.Sqrt(shifted[i]*shifted[i] - complex(wo*wo, 0))
	}
	for i := range proto {
		poles = append(poles, shifted[i]+roots[i])
	}
	for i := range proto {
		poles = append(poles, shifted[i]-roots[i])
	}
	zeros := make([]complex128, order)
	gain := math.Pow(bw, float64(order))

	// Bilinear transform.
	fs2 := complex(2*designFs, 0)
	num := complex(1, 0)
	den := complex(1, 0)
	dz := make([]complex128, 0, 2*order)
	dp := make([]complex128, 0, 2*order)
	for _, z := range zeros {
		dz = append(dz, (fs2+z)/(fs2-z))
		num *= fs2 - z
	}
	for _, p := range poles {
		dp = append(dp, (fs2+p)/(fs2-p))
		den *= fs2 - p
	}
	for i := 0; i < len(poles)-len(zeros); i++ {
		dz = append(dz, -1)
	}
	gain *= real(num / den)

	b := poly(dz)
	a := poly(dp)
	for i := range b {
		b[i] *= gain
	}
	return Filter{B: b, A: a}, nil
}

// poly returns the real coefficients of the monic polynomial with the given roots.
func poly(roots []complex128) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

// Response evaluates the magnitude of the frequency response at freqHz.
func (f Filter) Response(freqHz, fs float64) float64 {
	w := 2 * math.Pi * freqHz / fs
	z := cmplx.Exp(complex(0, -w))
	return cmplx.Abs(evalPoly(f.B, z) / evalPoly(f.A, z))
}

// evalPoly evaluates sum(c[k] * z^k).
func evalPoly(c []float64, z complex128) complex128 {
	var sum complex128
	zk := complex(1, 0)
	for _, v := range c {
		sum += complex(v, 0) * zk
		zk *= z
	}
	return sum
}
