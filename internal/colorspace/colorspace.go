// Package colorspace converts paint display colors between sRGB and CIE Lab.
// Catalog projections decorate items with Lab coordinates so clients can sort
// and match shades perceptually.
package colorspace

import (
	"fmt"
	"math"
	"strings"
)

// RGB is an sRGB color with channels in [0, 1].
type RGB struct {
	R float64
	G float64
	B float64
}

// Lab is a CIE L*a*b* color under the D65 reference white.
type Lab struct {
	L float64
	A float64
	B float64
}

// D65 reference white.
const (
	refX = 0.95047
	refY = 1.0
	refZ = 1.08883
)

// ParseHex reads #RRGGBB, RRGGBB, or the short #RGB form.
func ParseHex(value string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(hex) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return RGB{}, fmt.Errorf("colorspace: invalid hex color %q", value)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.ToLower(hex), "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("colorspace: invalid hex color %q", value)
	}
	return RGB{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

// Hex renders the color as #rrggbb.
func (c RGB) Hex() string {
	clamp := func(v float64) uint8 {
		scaled := math.Round(v * 255)
		if scaled < 0 {
			return 0
		}
		if scaled > 255 {
			return 255
		}
		return uint8(scaled)
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
}

// Lab converts through linearized sRGB and CIE XYZ.
func (c RGB) Lab() Lab {
	r := linearize(c.R)
	g := linearize(c.G)
	b := linearize(c.B)

	x := 0.4124564*r + 0.3575761*g + 0.1804375*b
	y := 0.2126729*r + 0.7151522*g + 0.0721750*b
	z := 0.0193339*r + 0.1191920*g + 0.9503041*b

	fx := labF(x / refX)
	fy := labF(y / refY)
	fz := labF(z / refZ)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// Luminance is the relative luminance of the color, 0 for black and 1 for
// white. The batch sheet uses it to pick readable text over color swatches.
func (c RGB) Luminance() float64 {
	return 0.2126729*linearize(c.R) + 0.7151522*linearize(c.G) + 0.0721750*linearize(c.B)
}

// DeltaE is the CIE76 color difference, the Euclidean distance in Lab space.
func DeltaE(a, b Lab) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

func linearize(channel float64) float64 {
	if channel <= 0.04045 {
		return channel / 12.92
	}
	return math.Pow((channel+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}
