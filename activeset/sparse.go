// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"errors"
	"fmt"
)

// spPattern is a compressed sparse column (CSC) pattern.
// Row indices are strictly increasing within each column.
type spPattern struct {
	nrow, ncol int
	colind     []int // ncol+1 offsets into row
	row        []int // row index per nonzero
}

func (sp *spPattern) nnz() int { return sp.colind[sp.ncol] }

// SpMatrix is a sparse matrix in CSC form.
type SpMatrix struct {
	Nrow, Ncol int
	Colind     []int     // Ncol+1 offsets into Row
	Row        []int     // row index per nonzero
	Nz         []float64 // nonzero values
}

// SpFromDense builds a CSC matrix from dense rows, dropping exact zeros.
func SpFromDense(rows [][]float64) *SpMatrix {
	nrow := len(rows)
	ncol := 0
	if nrow > 0 {
		ncol = len(rows[0])
	}
	a := &SpMatrix{Nrow: nrow, Ncol: ncol, Colind: make([]int, ncol+1)}
	for c := 0; c < ncol; c++ {
		for r := 0; r < nrow; r++ {
			if rows[r][c] != zero {
				a.Row = append(a.Row, r)
				a.Nz = append(a.Nz, rows[r][c])
			}
		}
		a.Colind[c+1] = len(a.Row)
	}
	return a
}

func (a *SpMatrix) pattern() *spPattern {
	return &spPattern{nrow: a.Nrow, ncol: a.Ncol, colind: a.Colind, row: a.Row}
}

func (a *SpMatrix) valid(name string) error {
	if a.Nrow < 0 || a.Ncol < 0 || len(a.Colind) != a.Ncol+1 || a.Colind[0] != 0 {
		return errors.New(name + " has malformed column offsets")
	}
	if nnz := a.Colind[a.Ncol]; len(a.Row) != nnz || len(a.Nz) != nnz {
		return errors.New(name + " nonzero count does not match column offsets")
	}
	for c := 0; c < a.Ncol; c++ {
		if a.Colind[c] > a.Colind[c+1] {
			return errors.New(name + " has decreasing column offsets")
		}
		for k := a.Colind[c]; k < a.Colind[c+1]; k++ {
			if r := a.Row[k]; r < 0 || r >= a.Nrow {
				return fmt.Errorf("%s row index out of range in column %d", name, c)
			}
			if k > a.Colind[c] && a.Row[k] <= a.Row[k-1] {
				return fmt.Errorf("%s rows not strictly increasing in column %d", name, c)
			}
		}
	}
	return nil
}

// spMV accumulates y += A·x, or y += Aᵀ·x when trans is set.
func spMV(nz []float64, sp *spPattern, x, y []float64, trans bool) {
	colind, row := sp.colind, sp.row
	if trans {
		for c := 0; c < sp.ncol; c++ {
			for k := colind[c]; k < colind[c+1]; k++ {
				y[c] += nz[k] * x[row[k]]
			}
		}
	} else {
		for c := 0; c < sp.ncol; c++ {
			for k := colind[c]; k < colind[c+1]; k++ {
				y[row[k]] += nz[k] * x[c]
			}
		}
	}
}

// spBilin computes the bilinear form xᵀ·A·y.
func spBilin(nz []float64, sp *spPattern, x, y []float64) (d float64) {
	colind, row := sp.colind, sp.row
	for c := 0; c < sp.ncol; c++ {
		for k := colind[c]; k < colind[c+1]; k++ {
			d += x[row[k]] * nz[k] * y[c]
		}
	}
	return d
}

// transPattern builds the CSC pattern of the transpose.
func transPattern(sp *spPattern) *spPattern {
	t := &spPattern{
		nrow:   sp.ncol,
		ncol:   sp.nrow,
		colind: make([]int, sp.nrow+1),
		row:    make([]int, sp.nnz()),
	}
	// Count entries per row of the original
	for _, r := range sp.row {
		t.colind[r+1]++
	}
	for c := 0; c < t.ncol; c++ {
		t.colind[c+1] += t.colind[c]
	}
	// Fill row indices, visiting the original in column order so that
	// each transposed column comes out sorted
	pos := make([]int, t.ncol)
	copy(pos, t.colind[:t.ncol])
	for c := 0; c < sp.ncol; c++ {
		for k := sp.colind[c]; k < sp.colind[c+1]; k++ {
			r := sp.row[k]
			t.row[pos[r]] = c
			pos[r]++
		}
	}
	return t
}

// spTrans scatters the nonzeros of (nz, sp) into the transposed layout
// (ynz, spT). iw is integer scratch of at least sp.nrow entries.
func spTrans(nz []float64, sp *spPattern, ynz []float64, spT *spPattern, iw []int) {
	if sp.nrow > len(iw) || sp.nnz() > len(ynz) {
		panic("bound check error")
	}
	copy(iw[:sp.nrow], spT.colind[:sp.nrow])
	for c := 0; c < sp.ncol; c++ {
		for k := sp.colind[c]; k < sp.colind[c+1]; k++ {
			r := sp.row[k]
			ynz[iw[r]] = nz[k]
			iw[r]++
		}
	}
}

// kktPattern builds the sparsity of the KKT matrix
//
//	⎡ H  Aᵀ⎤
//	⎣ A  -I⎦
//
// as the union of the block pattern with the full diagonal. The same
// pattern supports every activity state: active rows overwrite with
// identity rows without changing the symbolic structure.
func kktPattern(spH, spA, spAT *spPattern) *spPattern {
	nx, na := spH.ncol, spA.nrow
	nz := nx + na
	kkt := &spPattern{nrow: nz, ncol: nz, colind: make([]int, nz+1)}
	for c := 0; c < nx; c++ {
		// Column c < nx: rows of H column c, the diagonal, then A column c
		// shifted into the lower block
		diag := false
		for k := spH.colind[c]; k < spH.colind[c+1]; k++ {
			r := spH.row[k]
			if !diag && r >= c {
				if r > c {
					kkt.row = append(kkt.row, c)
				}
				diag = true
			}
			kkt.row = append(kkt.row, r)
		}
		if !diag {
			kkt.row = append(kkt.row, c)
		}
		for k := spA.colind[c]; k < spA.colind[c+1]; k++ {
			kkt.row = append(kkt.row, nx+spA.row[k])
		}
		kkt.colind[c+1] = len(kkt.row)
	}
	for j := 0; j < na; j++ {
		// Column nx+j: rows of Aᵀ column j in the upper block, then the
		// -I diagonal entry
		for k := spAT.colind[j]; k < spAT.colind[j+1]; k++ {
			kkt.row = append(kkt.row, spAT.row[k])
		}
		kkt.row = append(kkt.row, nx+j)
		kkt.colind[nx+j+1] = len(kkt.row)
	}
	return kkt
}
