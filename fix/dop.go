package fix

import "math"

// FillDOP computes xdop/ydop/hdop/vdop/pdop/tdop/gdop from a sky view's
// line-of-sight geometry and writes them into dop, but only into slots
// that are still NaN — a device-reported DOP always wins.
//
// It requires at least four satellites with finite elevation and
// azimuth; with fewer, or with a near-singular geometry matrix
// (|det| < 0.0001), it leaves dop untouched and returns false.
func FillDOP(sats []Sat, dop *DOP) bool {
	var rows [][4]float64
	for _, s := range sats {
		if !s.Used || !IsSet(s.Elevation) || !IsSet(s.Azimuth) {
			continue
		}
		az := s.Azimuth * math.Pi / 180
		el := s.Elevation * math.Pi / 180
		rows = append(rows, [4]float64{
			math.Sin(az) * math.Cos(el),
			math.Cos(az) * math.Cos(el),
			math.Sin(el),
			1,
		})
	}
	if len(rows) < 4 {
		return false
	}

	var m [4][4]float64
	for _, r := range rows {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				m[i][j] += r[i] * r[j]
			}
		}
	}

	inv, ok := invert4(m)
	if !ok {
		return false
	}

	setIfNaN := func(slot *float64, v float64) {
		if !IsSet(*slot) {
			*slot = v
		}
	}
	setIfNaN(&dop.XDOP, math.Sqrt(inv[0][0]))
	setIfNaN(&dop.YDOP, math.Sqrt(inv[1][1]))
	setIfNaN(&dop.HDOP, math.Sqrt(inv[0][0]+inv[1][1]))
	setIfNaN(&dop.VDOP, math.Sqrt(inv[2][2]))
	setIfNaN(&dop.PDOP, math.Sqrt(inv[0][0]+inv[1][1]+inv[2][2]))
	setIfNaN(&dop.TDOP, math.Sqrt(inv[3][3]))
	setIfNaN(&dop.GDOP, math.Sqrt(inv[0][0]+inv[1][1]+inv[2][2]+inv[3][3]))
	return true
}

// invert4 inverts a 4x4 matrix via cofactor expansion (the adjugate
// divided by the determinant), rejecting near-singular geometry.
func invert4(m [4][4]float64) ([4][4]float64, bool) {
	det := det4(m)
	if math.Abs(det) < 0.0001 {
		return [4][4]float64{}, false
	}

	var inv [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			cof := det3(minor3(m, i, j))
			if (i+j)%2 != 0 {
				cof = -cof
			}
			// Adjugate is the transpose of the cofactor matrix.
			inv[j][i] = cof / det
		}
	}
	return inv, true
}

func det4(m [4][4]float64) float64 {
	var det float64
	for j := 0; j < 4; j++ {
		cof := det3(minor3(m, 0, j))
		if j%2 != 0 {
			cof = -cof
		}
		det += m[0][j] * cof
	}
	return det
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// minor3 returns the 3x3 submatrix of m with the given row and column
// removed.
func minor3(m [4][4]float64, skipRow, skipCol int) [3][3]float64 {
	var r [3][3]float64
	ri := 0
	for i := 0; i < 4; i++ {
		if i == skipRow {
			continue
		}
		ci := 0
		for j := 0; j < 4; j++ {
			if j == skipCol {
				continue
			}
			r[ri][ci] = m[i][j]
			ci++
		}
		ri++
	}
	return r
}
