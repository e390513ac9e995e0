// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import "math"

// calcStep computes the primal-dual search direction.
//
// With a nonsingular KKT matrix the direction is the Newton step solving
// K·dz = r for the residual of kktResidual. With a singular KKT matrix dz
// is a nullspace column combination and scaleStep picks the constraint
// flip that restores rank together with the step scaling.
//
// On return dz[:nx] is the variable step, dz[nx:] the constraint-value
// step, dlam the multiplier step and tinfeas the tangent of the dual
// infeasibility, ready for the ratio tests. Reports false if no
// admissible scaling exists.
func (m *qpMem) calcStep(rIndex, rSign *int) bool {
	if m.sing == 0 {
		m.kktResidual(m.dz)
		m.qr.solve(m.dz, true)
	} else {
		m.qr.colcomb(m.dz, 0)
	}
	// Change in the Lagrangian gradient
	dzero(m.dlam[:m.nx])
	spMV(m.nzH, m.spH, m.dz, m.dlam, false)
	spMV(m.nzA, m.spA, m.dz[m.nx:], m.dlam, true)
	dscal(-one, m.dlam[:m.nx])
	// For inactive variables the lam step is zero
	for i := 0; i < m.nx; i++ {
		if m.lam[i] == zero {
			m.dlam[i] = zero
		}
	}
	// Step in lam[nx:] equals the stacked slot of the solve
	copy(m.dlam[m.nx:], m.dz[m.nx:])
	// Step in z[nx:] follows the variable step
	dzero(m.dz[m.nx:])
	spMV(m.nzA, m.spA, m.dz[:m.nx], m.dz[m.nx:], false)
	// Avoid steps that are nonzero only due to numerics
	for i := 0; i < m.nz; i++ {
		if math.Abs(m.dz[i]) < 1e-14 {
			m.dz[i] = zero
		}
	}
	// Tangent of the dual infeasibility at tau=0
	dzero(m.tinfeas)
	spMV(m.nzH, m.spH, m.dz, m.tinfeas, false)
	spMV(m.nzA, m.spA, m.dlam[m.nx:], m.tinfeas, true)
	daxpy(one, m.dlam[:m.nx], m.tinfeas)
	return m.scaleStep(rIndex, rSign)
}

// scaleStep handles the singular KKT case: among all constraint flips
// that increase the rank along some left nullspace vector, it picks the
// one reached by the smallest step |tau| that does not grow max(pr, du),
// then scales the direction so that tau=1 is a full step. Reports false
// when no admissible flip exists.
func (m *qpMem) scaleStep(rIndex, rSign *int) bool {
	*rIndex = -1
	*rSign = 0
	if m.sing == 0 {
		return true
	}
	// Directional derivatives of pr and du at tau=0
	tpr := zero
	if m.ipr >= 0 {
		if m.z[m.ipr] > m.ubz[m.ipr] {
			tpr = m.dz[m.ipr] / m.pr
		} else {
			tpr = -m.dz[m.ipr] / m.pr
		}
	}
	tdu := zero
	if m.idu >= 0 {
		tdu = m.tinfeas[m.idu] / m.infeas[m.idu]
	}
	// Which sign of tau keeps max(pr, du) from growing
	posOK, negOK := true, true
	var terr float64
	switch {
	case m.pr > m.du:
		if tpr < zero {
			negOK = false
		} else if tpr > zero {
			posOK = false
		}
		terr = tpr
	case m.pr < m.du:
		if tdu < zero {
			negOK = false
		} else if tdu > zero {
			posOK = false
		}
		terr = tdu
	default:
		if (tpr > zero && tdu < zero) || (tpr < zero && tdu > zero) {
			// max(pr, du) cannot be decreased along the direction
			posOK, negOK = false, false
			terr = zero
		} else if min(tpr, tdu) < zero {
			negOK = false
			terr = max(tpr, tdu)
		} else if max(tpr, tdu) > zero {
			posOK = false
			terr = min(tpr, tdu)
		} else {
			terr = zero
		}
	}
	// If primal error dominates and the violated constraint is active,
	// only allow its multiplier to grow
	if m.duToPr*m.pr >= m.du && m.ipr >= 0 &&
		m.lam[m.ipr] != zero && math.Abs(m.dlam[m.ipr]) > 1e-12 {
		if (m.lam[m.ipr] > zero) == (m.dlam[m.ipr] > zero) {
			negOK = false
		} else {
			posOK = false
		}
	}
	// QR factorization of the transpose: the nullspace columns are now
	// linear combinations of the KKT rows
	spTrans(m.nzKKT, m.spKKT, m.vKKT, m.spKKT, m.iw)
	copy(m.nzKKT, m.vKKT[:m.spKKT.nnz()])
	m.qr.factorize(m.nzKKT, m.spKKT)
	nullityTr := m.qr.singular(1e-12)
	tau := inf
	for nulli := 0; nulli < nullityTr; nulli++ {
		// A linear combination of the rows of the KKT matrix
		m.qr.colcomb(m.w, nulli)
		// Look for the best constraint for increasing rank
		for i := 0; i < m.nz; i++ {
			// The old column must be removable without decreasing rank
			if i < m.nx {
				if math.Abs(m.dz[i]) < 1e-12 {
					continue
				}
			} else {
				if math.Abs(m.dlam[i]) < 1e-12 {
					continue
				}
			}
			// If dot(w, kkt(i)-kkt_flipped(i))==0, rank won't increase
			if math.Abs(m.kktDot(m.w, i, 0)-m.kktDot(m.w, i, 1)) < 1e-12 {
				continue
			}
			if m.lam[i] == zero {
				// Candidate to activate: bring z to one of its bounds
				if math.Abs(m.dz[i]) < 1e-12 {
					continue
				}
				if !m.neverlower[i] {
					tauTest := (m.lbz[i] - m.z[i]) / m.dz[i]
					if !((terr > zero && tauTest > zero) || (terr < zero && tauTest < zero)) {
						// Pure removals only at tau=0
						if math.Abs(tauTest) >= 1e-16 && math.Abs(tauTest) < math.Abs(tau) {
							tau = tauTest
							*rIndex = i
							*rSign = -1
							m.note("Enforced lbz[%d] for regularity", i)
						}
					}
				}
				if !m.neverupper[i] {
					tauTest := (m.ubz[i] - m.z[i]) / m.dz[i]
					if !((terr > zero && tauTest > zero) || (terr < zero && tauTest < zero)) {
						if math.Abs(tauTest) >= 1e-16 && math.Abs(tauTest) < math.Abs(tau) {
							tau = tauTest
							*rIndex = i
							*rSign = 1
							m.note("Enforced ubz[%d] for regularity", i)
						}
					}
				}
			} else {
				// Candidate to deactivate: bring lam to zero
				if math.Abs(m.dlam[i]) < 1e-12 {
					continue
				}
				if m.neverzero[i] {
					continue
				}
				tauTest := -m.lam[i] / m.dlam[i]
				if (terr > zero && tauTest > zero) || (terr < zero && tauTest < zero) {
					continue
				}
				if (tauTest > zero && !posOK) || (tauTest < zero && !negOK) {
					continue
				}
				if math.Abs(tauTest) < math.Abs(tau) {
					tau = tauTest
					*rIndex = i
					*rSign = 0
					if m.lam[i] > zero {
						m.note("Dropped ubz[%d] for regularity", i)
					} else {
						m.note("Dropped lbz[%d] for regularity", i)
					}
				}
			}
		}
	}
	// Feasibility cannot be restored
	if *rIndex < 0 {
		return false
	}
	// Scale so that tau=1 corresponds to a full step
	dscal(tau, m.dz)
	dscal(tau, m.dlam)
	dscal(tau, m.tinfeas)
	return true
}
