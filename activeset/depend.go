// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

// calcPr finds the largest bound violation and its component.
func (m *qpMem) calcPr() {
	m.pr = zero
	m.ipr = -1
	for i := 0; i < m.nz; i++ {
		if m.z[i] > m.ubz[i]+m.pr {
			m.pr = m.z[i] - m.ubz[i]
			m.ipr = i
		} else if m.z[i] < m.lbz[i]-m.pr {
			m.pr = m.lbz[i] - m.z[i]
			m.ipr = i
		}
	}
}

// calcDu finds the largest dual infeasibility and its variable.
func (m *qpMem) calcDu() {
	m.du = zero
	m.idu = -1
	for i := 0; i < m.nx; i++ {
		if m.infeas[i] > m.du {
			m.du = m.infeas[i]
			m.idu = i
		} else if m.infeas[i] < -m.du {
			m.du = -m.infeas[i]
			m.idu = i
		}
	}
}

// calcDependent refreshes every quantity derived from (z, lam): the
// objective, the constraint slack z[nx:], the Lagrangian gradient, the
// bound multipliers and the primal/dual error norms.
//
// The bound multipliers are reset to match -∇ₓL while keeping their sign,
// clamped away from zero by dmin. This keeps the activity pattern intact
// while the magnitudes track the current iterate, and makes the routine
// idempotent on its observable outputs for fixed (z, lam signs).
func (m *qpMem) calcDependent() {
	// f = ½ zᵀHz + gᵀx
	m.f = spBilin(m.nzH, m.spH, m.z, m.z)/2. + ddot(m.z[:m.nx], m.g)
	// z[nx:] = A·x
	dzero(m.z[m.nx:])
	spMV(m.nzA, m.spA, m.z[:m.nx], m.z[m.nx:], false)
	// infeas = g + H·x + Aᵀ·lam[nx:]
	copy(m.infeas, m.g)
	spMV(m.nzH, m.spH, m.z[:m.nx], m.infeas, false)
	spMV(m.nzA, m.spA, m.lam[m.nx:], m.infeas, true)
	// Reset lam[:nx] without changing the sign, fold into infeas
	for i := 0; i < m.nx; i++ {
		if m.lam[i] > zero {
			m.lam[i] = max(-m.infeas[i], dmin)
		} else if m.lam[i] < zero {
			m.lam[i] = min(-m.infeas[i], -dmin)
		}
		m.infeas[i] += m.lam[i]
	}
	m.calcPr()
	m.calcDu()
}
