// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func factorizeDense(t *testing.T, rows [][]float64) *qrFact {
	t.Helper()
	a := SpFromDense(rows)
	require.Equal(t, a.Nrow, a.Ncol)
	q := newQR(a.Nrow)
	q.factorize(a.Nz, a.pattern())
	return q
}

func TestQRSolve(t *testing.T) {
	rows := [][]float64{
		{4, 1, 0},
		{2, 3, -1},
		{0, -1, 2},
	}
	q := factorizeDense(t, rows)
	require.Zero(t, q.singular(1e-12))

	b := []float64{1, -2, 0.5}
	var want mat.VecDense
	require.NoError(t, want.SolveVec(toDense(rows), mat.NewVecDense(3, b)))

	x := append([]float64{}, b...)
	q.solve(x, false)
	require.True(t, floats.EqualApprox(want.RawVector().Data, x, 1e-12))

	// The transposed solve against the dense transpose
	var wantT mat.VecDense
	require.NoError(t, wantT.SolveVec(toDense(rows).T(), mat.NewVecDense(3, b)))
	xt := append([]float64{}, b...)
	q.solve(xt, true)
	require.True(t, floats.EqualApprox(wantT.RawVector().Data, xt, 1e-12))
}

func TestQRSingular(t *testing.T) {
	// Row 2 = row 0 + row 1: rank 2
	rows := [][]float64{
		{1, 0, 1},
		{0, 1, 1},
		{1, 1, 2},
	}
	q := factorizeDense(t, rows)
	nullity := q.singular(1e-12)
	require.Equal(t, 1, nullity)
	require.InDelta(t, zero, q.mina, 1e-12)
	require.Equal(t, 2, q.imina)

	// The column combination is a unit nullspace vector of the matrix
	w := make([]float64, 3)
	q.colcomb(w, 0)
	require.InDelta(t, one, floats.Norm(w, 2), 1e-12)
	var res mat.VecDense
	res.MulVec(toDense(rows), mat.NewVecDense(3, w))
	for i := 0; i < 3; i++ {
		require.InDelta(t, zero, res.AtVec(i), 1e-10)
	}
}

func TestQRWitness(t *testing.T) {
	// Well conditioned but with one clearly smallest diagonal
	rows := [][]float64{
		{5, 0, 0},
		{0, 1e-3, 0},
		{0, 0, 7},
	}
	q := factorizeDense(t, rows)
	require.Zero(t, q.singular(1e-12))
	require.InDelta(t, 1e-3, q.mina, 1e-15)
	require.Equal(t, 1, q.imina)
}
