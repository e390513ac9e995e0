// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import "math"

// daxpy performs constant times a vector plus a vector operation.
func daxpy(da float64, dx, dy []float64) {
	n := uint(len(dx))
	if da == 0.0 || n == 0 {
		return
	}
	m := n % 4
	if m > uint(len(dy)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dy[i] += da * dx[i]
	}
	if n < 4 {
		return
	}
	for i := m; i < n; i += 4 {
		x := dx[i : i+4 : i+4]
		y := dy[i : i+4 : i+4]
		y[0] += da * x[0]
		y[1] += da * x[1]
		y[2] += da * x[2]
		y[3] += da * x[3]
	}
}

// ddot computes the dot product of two vectors.
func ddot(dx, dy []float64) (dot float64) {
	n := uint(len(dx))
	m := n % 5
	if m > uint(len(dy)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dot += dx[i] * dy[i]
	}
	if n < 5 {
		return dot
	}
	for i := m; i < n; i += 5 {
		x := dx[i : i+5 : i+5]
		y := dy[i : i+5 : i+5]
		dot += x[0]*y[0] + x[1]*y[1] + x[2]*y[2] + x[3]*y[3] + x[4]*y[4]
	}
	return dot
}

// dscal scales a vector by a constant.
func dscal(da float64, dx []float64) {
	n := uint(len(dx))
	m := n % 5
	for i := uint(0); i < m; i++ {
		dx[i] *= da
	}
	if n < 5 {
		return
	}
	for i := m; i < n; i += 5 {
		d := dx[i : i+5 : i+5]
		d[0] *= da
		d[1] *= da
		d[2] *= da
		d[3] *= da
		d[4] *= da
	}
}

// dzero fills vector x with zero.
func dzero(dx []float64) {
	n := uint(len(dx))
	m := n % 5
	for i := uint(0); i < m; i++ {
		dx[i] = zero
	}
	if n < 5 {
		return
	}
	for i := m; i < n; i += 5 {
		d := dx[i : i+5 : i+5]
		d[0] = zero
		d[1] = zero
		d[2] = zero
		d[3] = zero
		d[4] = zero
	}
}

// dnrminf computes the infinity norm of a vector.
func dnrminf(dx []float64) (nrm float64) {
	for _, v := range dx {
		if a := math.Abs(v); a > nrm {
			nrm = a
		}
	}
	return nrm
}
