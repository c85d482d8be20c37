package lbvh

// hilbertXYToIndex returns the position of (x, y) along a Hilbert curve of order n.
// x and y must be less than 2^n, and n must be between 1 and 16.
//
// Each step picks the quadrant of the current cell, adds the number of cells that the
// curve visits before that quadrant, and then rotates the remaining low bits into the
// quadrant's own frame.
func hilbertXYToIndex(n uint32, x uint32, y uint32) uint32 {
	side := uint32(1) << n
	x &= side - 1
	y &= side - 1

	var index uint32
	for s := side >> 1; s > 0; s >>= 1 {
		var rx, ry uint32
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		index += s * s * ((3 * rx) ^ ry)

		if ry == 0 {
			if rx == 1 {
				x = side - 1 - x
				y = side - 1 - y
			}
			x, y = y, x
		}
	}
	return index
}
