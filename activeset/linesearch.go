// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import "math"

// zeroBlocking checks for a constraint that is already violated beyond e
// at tau=0 while the step moves further into violation. Such a step must
// not be taken at all.
func (m *qpMem) zeroBlocking(e float64, index, sign *int) bool {
	dzMax := zero
	ret := false
	for i := 0; i < m.nz; i++ {
		if -m.dz[i] > dzMax && m.z[i] <= m.lbz[i]-e {
			ret = true
			*index = i
			*sign = -1
			m.note("lbz[%d] violated at 0", i)
		} else if m.dz[i] > dzMax && m.z[i] >= m.ubz[i]+e {
			ret = true
			*index = i
			*sign = 1
			m.note("ubz[%d] violated at 0", i)
		}
	}
	return ret
}

// primalBlocking shortens tau so that z + tau·dz stays within the bounds
// widened by e. A component whose multiplier already enforces the crossed
// side is suppressed as blocking index; the sign is still recorded.
func (m *qpMem) primalBlocking(e float64, index, sign *int) {
	if m.zeroBlocking(e, index, sign) {
		m.tau = zero
		return
	}
	for i := 0; i < m.nz; i++ {
		if m.dz[i] == zero {
			continue
		}
		trialZ := m.z[i] + m.tau*m.dz[i]
		if m.dz[i] < zero && trialZ < m.lbz[i]-e {
			m.tau = (m.lbz[i] - e - m.z[i]) / m.dz[i]
			if m.lam[i] < zero {
				*index = -1
			} else {
				*index = i
			}
			*sign = -1
			m.note("Enforcing lbz[%d]", i)
		} else if m.dz[i] > zero && trialZ > m.ubz[i]+e {
			m.tau = (m.ubz[i] + e - m.z[i]) / m.dz[i]
			if m.lam[i] > zero {
				*index = -1
			} else {
				*index = i
			}
			*sign = 1
			m.note("Enforcing ubz[%d]", i)
		}
		if m.tau <= zero {
			return
		}
	}
}

// dualBreakpoints collects the tau values in (0, tau] at which some
// active multiplier crosses zero, keeping tauList sorted with the full
// step as final entry and indList carrying the crossing component
// (-1 for the final entry). Returns the number of breakpoints.
func (m *qpMem) dualBreakpoints(tauList []float64, indList []int, tau float64) int {
	tauList[0] = tau
	indList[0] = -1
	nTau := 1
	for i := 0; i < m.nz; i++ {
		if m.dlam[i] == zero || m.lam[i] == zero {
			continue
		}
		trialLam := m.lam[i] + tau*m.dlam[i]
		// Skip if no sign change
		if m.lam[i] > zero {
			if trialLam >= zero {
				continue
			}
		} else if trialLam <= zero {
			continue
		}
		newTau := -m.lam[i] / m.dlam[i]
		loc := 0
		for ; loc < nTau-1; loc++ {
			if newTau < tauList[loc] {
				break
			}
		}
		// Insert element
		nTau++
		nextTau, nextInd := newTau, i
		for j := loc; j < nTau; j++ {
			tauList[j], nextTau = nextTau, tauList[j]
			indList[j], nextInd = nextInd, indList[j]
		}
	}
	return nTau
}

// dualBlocking walks the piecewise-linear dual infeasibility over the
// breakpoint intervals and shortens tau to the first excursion beyond e.
// infeas is advanced to the accepted tau along the way. Returns the
// blocking variable, or -1.
func (m *qpMem) dualBlocking(e float64) int {
	nTau := m.dualBreakpoints(m.w, m.iw, m.tau)
	duIndex := -1
	tauK := zero
	for j := 0; j < nTau; j++ {
		// Distance to the next breakpoint (may be zero)
		dtau := m.w[j] - tauK
		// Check if the maximum dual infeasibility gets exceeded
		for k := 0; k < m.nx; k++ {
			newInfeas := m.infeas[k] + dtau*m.tinfeas[k]
			if math.Abs(newInfeas) > e {
				bound := e
				if newInfeas < zero {
					bound = -e
				}
				tau1 := max(zero, tauK+(bound-m.infeas[k])/m.tinfeas[k])
				if tau1 < m.tau {
					m.tau = tau1
					duIndex = k
				}
			}
		}
		// Advance the infeasibility to the accepted tau
		daxpy(min(m.tau-tauK, dtau), m.tinfeas, m.infeas)
		if duIndex >= 0 {
			return duIndex
		}
		tauK = m.w[j]
		i := m.iw[j]
		if i < 0 {
			break
		}
		if !m.neverzero[i] {
			// lam[i] crosses zero here: remove its contribution from the
			// infeasibility tangent
			if i < m.nx {
				m.tinfeas[i] -= m.dlam[i]
			} else {
				for k := m.spAT.colind[i-m.nx]; k < m.spAT.colind[i-m.nx+1]; k++ {
					m.tinfeas[m.spAT.row[k]] -= m.nzAT[k] * m.dlam[i]
				}
			}
		}
	}
	return duIndex
}

// takeStep applies the accepted tau to (z, lam), reinforcing the sign of
// every multiplier: equality components may swap sides, all others keep
// their activity with at least dmin magnitude, or stay exactly zero.
func (m *qpMem) takeStep() {
	for i := 0; i < m.nz; i++ {
		switch {
		case m.lam[i] > zero:
			m.iw[i] = 1
		case m.lam[i] < zero:
			m.iw[i] = -1
		default:
			m.iw[i] = 0
		}
	}
	daxpy(m.tau, m.dz, m.z)
	daxpy(m.tau, m.dlam, m.lam)
	for i := 0; i < m.nz; i++ {
		// Sign changes are allowed for equality components only
		if m.neverzero[i] {
			if m.iw[i] < 0 {
				if m.lam[i] > zero {
					m.iw[i] = -m.iw[i]
				}
			} else if m.lam[i] < zero {
				m.iw[i] = -m.iw[i]
			}
		}
		switch m.iw[i] {
		case -1:
			m.lam[i] = min(m.lam[i], -dmin)
		case 1:
			m.lam[i] = max(m.lam[i], dmin)
		case 0:
			m.lam[i] = zero
		}
	}
}

// linesearch runs the primal and dual ratio tests in the current
// direction and takes the resulting step. index reports the primal
// blocking constraint with its bound sign, or -1 when dual blocking
// superseded it or a full step was taken.
func (m *qpMem) linesearch(index, sign *int) {
	*sign = 0
	*index = -1
	m.tau = one
	m.primalBlocking(max(m.pr, m.du/m.duToPr), index, sign)
	if m.dualBlocking(max(m.pr*m.duToPr, m.du)) >= 0 {
		*index = -1
		*sign = 0
	}
	m.takeStep()
}
