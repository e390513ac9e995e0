// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// qrFact is a Householder QR factorization M = QR of the assembled KKT
// matrix, with hooks for the singularity handling of the active-set loop:
// a smallest-R-diagonal witness and nullspace column combinations.
//
// The factorization carries no row or column permutation, so the witness
// index imina addresses columns of M directly.
type qrFact struct {
	n int
	// Householder vectors below the diagonal, R on and above,
	// in the row-major layout of the LAPACK interface
	a   []float64
	tau []float64
	wrk []float64
	// smallest |R[j,j]| and its column
	mina  float64
	imina int
	// singularity tolerance of the last scan
	tol float64
	// columns with |R[j,j]| below the singularity tolerance,
	// ordered by increasing magnitude
	null []int
}

func newQR(n int) *qrFact {
	lwork := 64 * n
	if lwork < 64 {
		lwork = 64
	}
	return &qrFact{
		n:    n,
		a:    make([]float64, n*n),
		tau:  make([]float64, n),
		wrk:  make([]float64, lwork),
		null: make([]int, 0, n),
	}
}

func (q *qrFact) general() blas64.General {
	return blas64.General{Rows: q.n, Cols: q.n, Stride: q.n, Data: q.a}
}

// factorize computes the QR decomposition of the CSC matrix (nz, sp).
func (q *qrFact) factorize(nz []float64, sp *spPattern) {
	n := q.n
	if sp.nrow != n || sp.ncol != n {
		panic("bound check error")
	}
	dzero(q.a)
	for c := 0; c < n; c++ {
		for k := sp.colind[c]; k < sp.colind[c+1]; k++ {
			q.a[sp.row[k]*n+c] = nz[k]
		}
	}
	lapack64.Geqrf(q.general(), q.tau, q.wrk, len(q.wrk))
}

// solve overwrites b with the solution of M·x = b, or Mᵀ·x = b when
// trans is set. Only valid while the factorization is nonsingular.
func (q *qrFact) solve(b []float64, trans bool) {
	n := q.n
	if n > len(b) {
		panic("bound check error")
	}
	r := blas64.Triangular{N: n, Stride: n, Data: q.a, Uplo: blas.Upper, Diag: blas.NonUnit}
	c := blas64.General{Rows: n, Cols: 1, Stride: 1, Data: b[:n]}
	v := blas64.Vector{N: n, Inc: 1, Data: b[:n]}
	if trans {
		// Mᵀ = RᵀQᵀ : x = Q·R⁻ᵀ·b
		blas64.Trsv(blas.Trans, r, v)
		lapack64.Ormqr(blas.Left, blas.NoTrans, q.general(), q.tau, c, q.wrk, len(q.wrk))
	} else {
		// M = QR : x = R⁻¹·Qᵀ·b
		lapack64.Ormqr(blas.Left, blas.Trans, q.general(), q.tau, c, q.wrk, len(q.wrk))
		blas64.Trsv(blas.NoTrans, r, v)
	}
}

// singular scans the diagonal of R, recording the smallest magnitude with
// its column witness and collecting the columns below tol. It returns the
// nullity estimate.
func (q *qrFact) singular(tol float64) int {
	n := q.n
	q.mina = inf
	q.imina = -1
	q.tol = tol
	q.null = q.null[:0]
	for j := 0; j < n; j++ {
		d := math.Abs(q.a[j*n+j])
		if d < q.mina {
			q.mina = d
			q.imina = j
		}
		if d < tol {
			q.null = append(q.null, j)
		}
	}
	// Order the deficient columns by increasing |R[j,j]| so that the
	// k-th nullspace vector is well defined
	for i := 1; i < len(q.null); i++ {
		for k := i; k > 0; k-- {
			a := math.Abs(q.a[q.null[k]*n+q.null[k]])
			b := math.Abs(q.a[q.null[k-1]*n+q.null[k-1]])
			if a >= b {
				break
			}
			q.null[k], q.null[k-1] = q.null[k-1], q.null[k]
		}
	}
	return len(q.null)
}

// colcomb writes into w the k-th nullspace column combination: a unit
// vector v with M·v ≈ 0, obtained by back-substitution against the
// leading block of R above the k-th deficient column. Must be preceded
// by a call to singular that reported nullity > k.
func (q *qrFact) colcomb(w []float64, k int) {
	n := q.n
	if n > len(w) || k >= len(q.null) {
		panic("bound check error")
	}
	j := q.null[k]
	dzero(w[:n])
	w[j] = one
	for i := j - 1; i >= 0; i-- {
		s := zero
		for l := i + 1; l <= j; l++ {
			s += q.a[i*n+l] * w[l]
		}
		if d := q.a[i*n+i]; math.Abs(d) >= q.tol {
			w[i] = -s / d
		}
	}
	if nrm := math.Sqrt(ddot(w[:n], w[:n])); nrm > zero {
		dscal(one/nrm, w[:n])
	}
}
