package processor

import (
	"image/color"
	"math"
)

func clampChannel(val float64) uint8 {
	if val < 0 {
		return 0
	}
	if val > 255 {
		return 255
	}
	return uint8(val)
}

// BurnColour maps the relativized burn ratio onto the
// green-to-red severity gradient. The mapping clamps without
// rescaling: any rbr >= 1 clips to pure red, any rbr <= 0 to
// pure green.
func BurnColour(rbr float64) (uint8, uint8, uint8) {
	red := clampChannel(math.Round(rbr * 255))
	green := clampChannel(math.Round((1 - rbr) * 255))
	return red, green, 0
}

// AdjustAlpha applies the non-linear opacity compression to a
// base alpha from the classifier. Squaring suppresses the
// visibility of low severity bands more than high ones.
func AdjustAlpha(alpha float64) float64 {
	return alpha * alpha
}

// Palette describes a legend colour ramp as a list of control
// colours, optionally interpolated.
type Palette struct {
	Interpolate bool
	Colours     []color.RGBA
}

// DefaultLegendPalette is the severity gradient rendered by the
// /legend endpoint, matching BurnColour endpoints.
var DefaultLegendPalette = &Palette{
	Interpolate: true,
	Colours: []color.RGBA{
		{0, 255, 0, 255},
		{255, 0, 0, 255},
	},
}

// InterpolateUint8 interpolates the value of a byte between two
// numbers 'a' and 'b' by specifying a length and a position 'i'
// along that length.
func InterpolateUint8(a, b uint8, i, sectionLength int) uint8 {
	return a + uint8((i * (int(b) - int(a)) / sectionLength))
}

// InterpolateColor returns an RGBA color where the R, G, B, and
// A components have been interpolated from the 'a' and 'b'
// colors.
func InterpolateColor(a, b color.RGBA, i, sectionLength int) color.RGBA {
	return color.RGBA{InterpolateUint8(a.R, b.R, i, sectionLength),
		InterpolateUint8(a.G, b.G, i, sectionLength),
		InterpolateUint8(a.B, b.B, i, sectionLength),
		255}
}

// GradientRGBAPalette returns a ramp of 256 colors interpolated
// through the control colours of the palette.
func GradientRGBAPalette(palette *Palette) ([]color.RGBA, error) {
	if palette == nil {
		return nil, nil
	}

	ramp := make([]color.RGBA, 256)

	if palette.Interpolate {
		bins := len(palette.Colours) - 1
		sectionLength := 256 / bins
		bonus := 256 - (sectionLength * bins)
		bonusArr := make([]int, bins)
		for i := 0; i < bonus; i++ {
			bonusArr[i] = 1
		}

		index := 0
		for section, upperColour := range palette.Colours[1:] {
			for i := 0; i < sectionLength+bonusArr[section]; i++ {
				ramp[index] = InterpolateColor(palette.Colours[section], upperColour, i, sectionLength)
				index++
			}
		}
	} else {
		bins := len(palette.Colours)
		sectionLength := 256 / bins
		bonus := 256 - (sectionLength * bins)
		bonusArr := make([]int, bins)
		for i := 0; i < bonus; i++ {
			bonusArr[i] = 1
		}

		index := 0
		for section, colour := range palette.Colours {
			for i := 0; i < sectionLength+bonusArr[section]; i++ {
				ramp[index] = colour
				index++
			}
		}
	}

	return ramp, nil
}
