package ply

import "github.com/chewxy/math32"

// ColorKind selects which color representation the points of a frame carry.
// Exactly one representation is populated per point.
type ColorKind uint8

const (
	// ColorRGB is a raw linear 8-bit triplet. Files without f_dc_*
	// properties decode to this kind with zeroed bytes.
	ColorRGB ColorKind = iota

	// ColorSH is the first-order spherical-harmonic DC coefficient triplet.
	ColorSH
)

// Point is one Gaussian splat as stored on disk. Scale is kept in log
// domain and opacity in logit domain, exactly as read; use LinearScale and
// Opacity when the activated values are needed.
type Point struct {
	Position     [3]float32
	LogScale     [3]float32
	LogitOpacity float32

	// Rotation is a unit quaternion, real component first.
	Rotation [4]float32

	SH  [3]float32
	RGB [3]uint8
}

// LinearScale returns the exponentiated per-axis scale.
func (p *Point) LinearScale() [3]float32 {
	return [3]float32{
		math32.Exp(p.LogScale[0]),
		math32.Exp(p.LogScale[1]),
		math32.Exp(p.LogScale[2]),
	}
}

// Opacity returns the sigmoid of the stored logit, in [0, 1].
func (p *Point) Opacity() float32 {
	return 1 / (1 + math32.Exp(-p.LogitOpacity))
}
