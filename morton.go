package lbvh

// Curve selects the space-filling curve used to order leaf centroids
type Curve int

const (
	CurveMorton32 Curve = iota // 10 bits per axis, 2D or 3D
	CurveMorton64              // 21 bits per axis, 2D or 3D
	CurveHilbert               // 16 bits per axis, 2D only
)

func (c Curve) String() string {
	switch c {
	case CurveMorton32:
		return "morton32"
	case CurveMorton64:
		return "morton64"
	case CurveHilbert:
		return "hilbert"
	}
	return "unknown"
}

// codeBits is the number of meaningful bits in a code produced by the curve.
// Returns 0 for an unknown curve.
func (c Curve) codeBits() int {
	switch c {
	case CurveMorton32, CurveHilbert:
		return 32
	case CurveMorton64:
		return 64
	}
	return 0
}

// expandBits32 spreads the low 10 bits of x so that there are two zero bits between each
func expandBits32(x uint32) uint32 {
	x &= 0x3FF
	x = (x | (x << 16)) & 0x030000FF
	x = (x | (x << 8)) & 0x0300F00F
	x = (x | (x << 4)) & 0x030C30C3
	x = (x | (x << 2)) & 0x09249249
	return x
}

// expandBits64 spreads the low 21 bits of x so that there are two zero bits between each
func expandBits64(x uint32) uint64 {
	v := uint64(x) & 0x1FFFFF
	v = (v | v<<32) & 0x1F00000000FFFF
	v = (v | v<<16) & 0x1F0000FF0000FF
	v = (v | v<<8) & 0x100F00F00F00F00F
	v = (v | v<<4) & 0x10C30C30C30C30C3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// quantize scales a [0,1] coordinate to [0, 2^bits - 1].
// Out of range values are clamped and NaN maps to zero.
func quantize(v float64, bits uint) uint32 {
	scale := float64(uint32(1) << bits)
	v *= scale
	if !(v > 0) {
		return 0
	}
	if v > scale-1 {
		return uint32(scale - 1)
	}
	return uint32(v)
}

// Morton32 returns the 30 bit morton code of a point in the unit cube.
// For 2D, pass z = 0.
func Morton32(x, y, z float64) uint32 {
	xx := expandBits32(quantize(x, 10))
	yy := expandBits32(quantize(y, 10))
	zz := expandBits32(quantize(z, 10))
	return zz<<2 | yy<<1 | xx
}

// Morton64 returns the 63 bit morton code of a point in the unit cube.
// For 2D, pass z = 0.
func Morton64(x, y, z float64) uint64 {
	xx := expandBits64(quantize(x, 21))
	yy := expandBits64(quantize(y, 21))
	zz := expandBits64(quantize(z, 21))
	return zz<<2 | yy<<1 | xx
}

// encode maps a normalized point to a code on the curve
func (c Curve) encode(x, y, z float64) uint64 {
	switch c {
	case CurveMorton64:
		return Morton64(x, y, z)
	case CurveHilbert:
		return uint64(hilbertXYToIndex(16, quantize(x, 16), quantize(y, 16)))
	}
	return uint64(Morton32(x, y, z))
}
