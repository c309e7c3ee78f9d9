package colorutil

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBluesEndpoints(t *testing.T) {
	assert.Equal(t, color.RGBA{0xf7, 0xfb, 0xff, 0xff}, Blues(0))
	assert.Equal(t, color.RGBA{0x08, 0x30, 0x6b, 0xff}, Blues(1))
	assert.Equal(t, Blues(0), Blues(-3))
	assert.Equal(t, Blues(1), Blues(7))
	assert.Equal(t, Blues(0), Blues(math.NaN()))
	assert.Equal(t, blues[4], Blues(0.5))
}

func TestBluesDarkens(t *testing.T) {
	prev := Luminance(Blues(0))
	for i := 1; i <= 20; i++ {
		l := Luminance(Blues(float64(i) / 20))
		assert.LessOrEqual(t, l, prev)
		prev = l
	}
}

func TestLerpAndText(t *testing.T) {
	mid := Lerp(Black, White, 0.5)
	assert.Equal(t, uint8(128), mid.R)
	assert.Equal(t, White, TextOn(Blues(1)))
	assert.Equal(t, Black, TextOn(Blues(0)))
}
