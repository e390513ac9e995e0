// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// kktProblem is a small QP with structural zeros in both H and A.
func kktProblem() *Problem {
	return &Problem{
		H: SpFromDense([][]float64{
			{4, 0, 1},
			{0, 2, 0},
			{1, 0, 3},
		}),
		G: []float64{1, -1, 0},
		A: SpFromDense([][]float64{
			{1, 0, -1},
			{0, 2, 0},
		}),
		LBX: []float64{-1, -1, -1},
		UBX: []float64{1, 1, 1},
		LBA: []float64{-2, -2},
		UBA: []float64{2, 2},
	}
}

// denseKKTRow builds row i of the KKT matrix directly from the rules.
func denseKKTRow(s *Solver, lam []float64, i int) []float64 {
	row := make([]float64, s.nz)
	hd := [][]float64{{4, 0, 1}, {0, 2, 0}, {1, 0, 3}}
	ad := [][]float64{{1, 0, -1}, {0, 2, 0}}
	if i < s.nx {
		if lam[i] == 0 {
			copy(row[:s.nx], hd[i])
			for j := 0; j < s.na; j++ {
				row[s.nx+j] = ad[j][i]
			}
		} else {
			row[i] = 1
		}
	} else {
		if lam[i] == 0 {
			row[i] = -1
		} else {
			copy(row[:s.nx], ad[i-s.nx])
		}
	}
	return row
}

func TestKKTAssembly(t *testing.T) {
	s, err := kktProblem().New()
	require.NoError(t, err)
	w := s.Init()

	states := [][]float64{
		{0, 0, 0, 0, 0},
		{dmin, 0, -dmin, 0, 0},
		{0, 0, 0, dmin, -dmin},
		{dmin, dmin, dmin, dmin, dmin},
	}
	nnz := -1
	for _, lam := range states {
		m := s.buildMem(w, nil, lam[:3], lam[3:])
		m.kkt()
		// The symbolic pattern never changes with the activity state
		if nnz < 0 {
			nnz = s.spKKT.nnz()
		}
		require.Equal(t, nnz, s.spKKT.nnz())
		// Row i of the KKT matrix lands in column i of the pattern
		for i := 0; i < s.nz; i++ {
			want := denseKKTRow(s, lam, i)
			got := make([]float64, s.nz)
			for k := s.spKKT.colind[i]; k < s.spKKT.colind[i+1]; k++ {
				got[s.spKKT.row[k]] = m.nzKKT[k]
			}
			require.Equal(t, want, got, "row %d for state %v", i, lam)
		}
	}
}

func TestKKTColumnAndDot(t *testing.T) {
	s, err := kktProblem().New()
	require.NoError(t, err)
	w := s.Init()
	m := s.buildMem(w, nil, nil, nil)

	v := []float64{0.5, -1, 2, 1.5, -0.5}
	col := make([]float64, s.nz)
	for i := 0; i < s.nz; i++ {
		for _, sign := range []int{0, 1, -1} {
			m.kktColumn(col, i, sign)
			// kktDot agrees with the materialized column
			require.InDelta(t, ddot(v, col), m.kktDot(v, i, sign), 1e-14,
				"component %d sign %d", i, sign)
			// The hypothetical column matches the dense rules
			lam := make([]float64, s.nz)
			if sign != 0 {
				lam[i] = float64(sign)
			}
			require.Equal(t, denseKKTRow(s, lam, i), col,
				"component %d sign %d", i, sign)
		}
	}
}

func TestKKTResidual(t *testing.T) {
	s, err := kktProblem().New()
	require.NoError(t, err)
	w := s.Init()
	m := s.buildMem(w, []float64{2, 0, -2}, []float64{0.5, 0, -0.5}, nil)
	m.calcDependent()

	r := make([]float64, s.nz)
	m.kktResidual(r)
	for i := 0; i < s.nz; i++ {
		switch {
		case m.lam[i] > zero:
			require.Equal(t, s.ubz[i]-m.z[i], r[i], "component %d", i)
		case m.lam[i] < zero:
			require.Equal(t, s.lbz[i]-m.z[i], r[i], "component %d", i)
		case i < s.nx:
			require.Equal(t, m.lam[i]-m.infeas[i], r[i], "component %d", i)
		default:
			require.Equal(t, m.lam[i], r[i], "component %d", i)
		}
	}
}
