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

var denseA = [][]float64{
	{0, 2, 0, 1},
	{3, 0, 0, 0},
	{0, -1, 4, 0},
}

func spHas(sp *spPattern, r, c int) bool {
	for k := sp.colind[c]; k < sp.colind[c+1]; k++ {
		if sp.row[k] == r {
			return true
		}
	}
	return false
}

func toDense(rows [][]float64) *mat.Dense {
	nr, nc := len(rows), len(rows[0])
	d := mat.NewDense(nr, nc, nil)
	for i, row := range rows {
		d.SetRow(i, row)
	}
	return d
}

func TestSpFromDense(t *testing.T) {
	a := SpFromDense(denseA)
	require.NoError(t, a.valid("a"))
	require.Equal(t, 5, a.pattern().nnz())
	require.Equal(t, []int{0, 1, 3, 4, 5}, a.Colind)
	require.Equal(t, []int{1, 0, 2, 2, 0}, a.Row)
	require.Equal(t, []float64{3, 2, -1, 4, 1}, a.Nz)
}

func TestSpMV(t *testing.T) {
	a := SpFromDense(denseA)
	x := []float64{1, -2, 0.5, 3}
	y := make([]float64, 3)
	spMV(a.Nz, a.pattern(), x, y, false)

	want := make([]float64, 3)
	d := toDense(denseA)
	wv := mat.NewVecDense(3, want)
	wv.MulVec(d, mat.NewVecDense(4, x))
	require.True(t, floats.EqualApprox(want, y, 1e-15))

	xt := []float64{2, -1, 0.5}
	yt := make([]float64, 4)
	spMV(a.Nz, a.pattern(), xt, yt, true)
	wantT := make([]float64, 4)
	wt := mat.NewVecDense(4, wantT)
	wt.MulVec(d.T(), mat.NewVecDense(3, xt))
	require.True(t, floats.EqualApprox(wantT, yt, 1e-15))
}

func TestSpTrans(t *testing.T) {
	a := SpFromDense(denseA)
	sp := a.pattern()
	spT := transPattern(sp)
	require.Equal(t, sp.nnz(), spT.nnz())
	require.Equal(t, sp.nrow, spT.ncol)

	nzT := make([]float64, sp.nnz())
	iw := make([]int, sp.nrow)
	spTrans(a.Nz, sp, nzT, spT, iw)

	// Transposing twice restores the original
	back := make([]float64, sp.nnz())
	spTrans(nzT, spT, back, sp, make([]int, spT.nrow))
	require.Equal(t, a.Nz, back)

	// Entry-by-entry comparison against the dense transpose
	d := toDense(denseA)
	for c := 0; c < spT.ncol; c++ {
		for k := spT.colind[c]; k < spT.colind[c+1]; k++ {
			require.Equal(t, d.At(c, spT.row[k]), nzT[k])
		}
	}
}

func TestSpBilin(t *testing.T) {
	h := [][]float64{
		{4, 1, 0},
		{1, 3, -1},
		{0, -1, 2},
	}
	a := SpFromDense(h)
	x := []float64{1, 2, -1}
	y := []float64{0.5, -1, 2}

	var want mat.Dense
	want.Product(
		mat.NewDense(1, 3, x),
		toDense(h),
		mat.NewDense(3, 1, y),
	)
	got := spBilin(a.Nz, a.pattern(), x, y)
	require.InDelta(t, want.At(0, 0), got, 1e-14)
}

func TestKKTPattern(t *testing.T) {
	h := SpFromDense([][]float64{
		{4, 0, 1},
		{0, 0, 0},
		{1, 0, 2},
	})
	a := SpFromDense([][]float64{
		{1, 0, -1},
		{0, 2, 0},
	})
	spH, spA := h.pattern(), a.pattern()
	spAT := transPattern(spA)
	kkt := kktPattern(spH, spA, spAT)

	require.Equal(t, 5, kkt.nrow)
	require.Equal(t, 5, kkt.ncol)
	// The pattern must be valid CSC with strictly increasing rows
	for c := 0; c < kkt.ncol; c++ {
		for k := kkt.colind[c] + 1; k < kkt.colind[c+1]; k++ {
			require.Less(t, kkt.row[k-1], kkt.row[k], "column %d", c)
		}
	}
	// Every block entry and the full diagonal must be covered
	for i := 0; i < 5; i++ {
		require.True(t, spHas(kkt, i, i), "diagonal %d", i)
	}
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			if spHas(spH, r, c) {
				require.True(t, spHas(kkt, r, c), "H(%d,%d)", r, c)
			}
		}
		for j := 0; j < 2; j++ {
			if spHas(spA, j, c) {
				require.True(t, spHas(kkt, 3+j, c), "A(%d,%d)", j, c)
				require.True(t, spHas(kkt, c, 3+j), "AT(%d,%d)", c, j)
			}
		}
	}
}
