// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import "math"

// prIndex proposes activating the most violated constraint, provided it
// is not already active. Returns -1 otherwise.
func (m *qpMem) prIndex(sign *int) int {
	if m.lam[m.ipr] == zero {
		if m.z[m.ipr] < m.lbz[m.ipr] {
			*sign = -1
		} else {
			*sign = 1
		}
		m.note("Added %d to reduce |pr|", m.ipr)
		return m.ipr
	}
	return -1
}

// duCheck returns the largest dual infeasibility that would result from
// setting lam[i] to zero.
func (m *qpMem) duCheck(i int) float64 {
	if i < m.nx {
		return math.Abs(m.infeas[i] - m.lam[i])
	}
	newDu := zero
	for k := m.spAT.colind[i-m.nx]; k < m.spAT.colind[i-m.nx+1]; k++ {
		newDu = max(newDu, math.Abs(m.infeas[m.spAT.row[k]]-m.nzAT[k]*m.lam[i]))
	}
	return newDu
}

// duIndex proposes deactivating the constraint whose removal reduces the
// dual infeasibility the most without increasing its maximum. Returns -1
// if no such constraint exists.
func (m *qpMem) duIndex(sign *int) int {
	// Sensitivity of infeas[idu] to each multiplier
	w := m.w[:m.nz]
	dzero(w)
	if m.infeas[m.idu] > zero {
		w[m.idu] = -one
	} else {
		w[m.idu] = one
	}
	spMV(m.nzA, m.spA, w, w[m.nx:], false)
	bestInd := -1
	bestW := zero
	for i := 0; i < m.nz; i++ {
		// The variable must influence du
		if w[i] == zero {
			continue
		}
		// Removing the constraint must decrease dual infeasibility
		if w[i] > zero {
			if m.lam[i] >= zero {
				continue
			}
		} else if m.lam[i] <= zero {
			continue
		}
		// Skip if the maximum infeasibility increases
		if m.duCheck(i) > m.du {
			continue
		}
		if math.Abs(w[i]) > bestW {
			bestW = math.Abs(w[i])
			bestInd = i
		}
	}
	if bestInd >= 0 {
		*sign = 0
		m.note("Removed %d to reduce |du|", bestInd)
		return bestInd
	}
	return -1
}

// flipCheck tests whether flipping index alone keeps the KKT matrix
// nonsingular. If the flipped column is dependent on the current basis it
// searches a companion flip that restores independence, preferring the
// candidate with the largest slack. Reports true when a companion is
// required but none exists.
func (m *qpMem) flipCheck(index, sign int, rIndex, rSign *int, e float64) bool {
	// The new column we are trying to add
	m.kktColumn(m.dz, index, sign)
	// Express it using the other columns
	m.qr.solve(m.dz, false)
	// Quick return if the columns are linearly independent
	if math.Abs(m.dz[index]) >= 1e-12 {
		return false
	}
	// The column we are removing
	flipped := 0
	if sign == 0 {
		flipped = 1
	}
	m.kktColumn(m.w, index, flipped)
	// Find the best constraint to flip along, if any
	*rIndex = -1
	*rSign = 0
	bestSlack := math.Inf(-1)
	for i := 0; i < m.nz; i++ {
		// Cannot be the same
		if i == index {
			continue
		}
		// Make sure the constraint is flippable
		if m.lam[i] == zero {
			if m.neverlower[i] && m.neverupper[i] {
				continue
			}
		} else if m.neverzero[i] {
			continue
		}
		// If dz[i]==0, column i is redundant
		if math.Abs(m.dz[i]) < 1e-12 {
			continue
		}
		// The flipped column i must not be orthogonal to the removed
		// column, or the flip leads straight back to singularity. This
		// does not cover every case; general handling is the singular
		// path of the step computation.
		hyp := 0
		if m.lam[i] == zero {
			hyp = 1
		}
		if math.Abs(m.kktDot(m.w, i, hyp)) < 1e-12 {
			continue
		}
		var newSign int
		var newSlack float64
		if m.lam[i] == zero {
			// Pick the closer bound; better than negative slack, worse
			// than positive slack
			if m.lbz[i]-m.z[i] >= m.z[i]-m.ubz[i] {
				newSign = -1
			} else {
				newSign = 1
			}
			newSlack = zero
		} else {
			// Skip if deactivating would produce too large |du|
			if m.duCheck(i) > e {
				continue
			}
			if m.lam[i] > zero {
				newSlack = m.ubz[i] - m.z[i]
			} else {
				newSlack = m.z[i] - m.lbz[i]
			}
			newSign = 0
		}
		if newSlack > bestSlack {
			bestSlack = newSlack
			*rIndex = i
			*rSign = newSign
		}
	}
	return *rIndex < 0
}

// flip decides and commits the next active-set change. Priority goes to
// the flip chosen by singularity recovery, then to reducing whichever of
// the primal or dual error dominates. When the KKT matrix is nonsingular
// a companion flip keeps it that way if needed. index is left at -1 when
// no change exists, which terminates the driver loop.
func (m *qpMem) flip(index, sign *int, rIndex, rSign int) {
	// Acceptable dual error
	e := max(m.duToPr*m.pr, m.du)
	// Try to restore regularity if possible
	if rIndex >= 0 && (rSign != 0 || m.duCheck(rIndex) <= e) {
		*index = rIndex
		*sign = rSign
		m.note("%d->%d for regularity", *index, *sign)
	}
	// Improve primal or dual feasibility
	if *index == -1 && m.tau > 1e-16 && (m.ipr >= 0 || m.idu >= 0) {
		if m.duToPr*m.pr >= m.du {
			*index = m.prIndex(sign)
		} else {
			*index = m.duIndex(sign)
		}
	}
	if *index >= 0 {
		// Try to maintain non-singularity if possible
		if m.sing == 0 {
			rIndex, rSign = -1, 0
			m.flipCheck(*index, *sign, &rIndex, &rSign, e)
			if rIndex >= 0 {
				// Also flip rIndex to avoid singularity
				m.lam[rIndex] = flipLam(rSign)
				m.note("%d->%d, %d->%d", *index, *sign, rIndex, rSign)
			}
		}
		m.lam[*index] = flipLam(*sign)
		// Recalculate primal and dual infeasibility
		m.calcDependent()
		*index = -2
	}
}

// flipLam maps a flip sign onto the committed multiplier value.
func flipLam(sign int) float64 {
	switch {
	case sign > 0:
		return dmin
	case sign < 0:
		return -dmin
	}
	return zero
}
