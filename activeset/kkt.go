// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

// kkt assembles the numeric KKT matrix for the current activity pattern.
// Row i is
//   - row i of [H | Aᵀ]    if lam[i] == 0 and i < nx
//   - eᵢᵀ                  if lam[i] != 0 and i < nx
//   - -eᵢᵀ                 if lam[i] == 0 and i >= nx
//   - row i-nx of [A | 0]  if lam[i] != 0 and i >= nx
//
// Rows are scattered into the scratch vector w by column index and
// gathered into the fixed CSC pattern, zeroing w again on the way out, so
// assembly is O(nnz) without per-row allocation. The rows land in the
// columns of the symmetric pattern: nzKKT holds the KKT matrix row-wise.
func (m *qpMem) kkt() {
	w := m.w[:m.nz]
	dzero(w)
	for i := 0; i < m.nz; i++ {
		if i < m.nx {
			if m.lam[i] == zero {
				for k := m.spH.colind[i]; k < m.spH.colind[i+1]; k++ {
					w[m.spH.row[k]] = m.nzH[k]
				}
				for k := m.spA.colind[i]; k < m.spA.colind[i+1]; k++ {
					w[m.nx+m.spA.row[k]] = m.nzA[k]
				}
			} else {
				w[i] = one
			}
		} else {
			if m.lam[i] == zero {
				w[i] = -one
			} else {
				for k := m.spAT.colind[i-m.nx]; k < m.spAT.colind[i-m.nx+1]; k++ {
					w[m.spAT.row[k]] = m.nzAT[k]
				}
			}
		}
		for k := m.spKKT.colind[i]; k < m.spKKT.colind[i+1]; k++ {
			m.nzKKT[k] = w[m.spKKT.row[k]]
			w[m.spKKT.row[k]] = zero
		}
	}
}

// kktColumn writes into kktI the dense column i of the KKT matrix under
// the hypothetical activity sign (0 inactive, nonzero active).
func (m *qpMem) kktColumn(kktI []float64, i, sign int) {
	dzero(kktI[:m.nz])
	if i < m.nx {
		if sign == 0 {
			for k := m.spH.colind[i]; k < m.spH.colind[i+1]; k++ {
				kktI[m.spH.row[k]] = m.nzH[k]
			}
			for k := m.spA.colind[i]; k < m.spA.colind[i+1]; k++ {
				kktI[m.nx+m.spA.row[k]] = m.nzA[k]
			}
		} else {
			kktI[i] = one
		}
	} else {
		if sign == 0 {
			kktI[i] = -one
		} else {
			for k := m.spAT.colind[i-m.nx]; k < m.spAT.colind[i-m.nx+1]; k++ {
				kktI[m.spAT.row[k]] = m.nzAT[k]
			}
		}
	}
}

// kktDot returns vᵀ·K[:,i] under the hypothetical activity sign,
// without materializing the column.
func (m *qpMem) kktDot(v []float64, i, sign int) (d float64) {
	if i < m.nx {
		if sign == 0 {
			for k := m.spH.colind[i]; k < m.spH.colind[i+1]; k++ {
				d += v[m.spH.row[k]] * m.nzH[k]
			}
			for k := m.spA.colind[i]; k < m.spA.colind[i+1]; k++ {
				d += v[m.nx+m.spA.row[k]] * m.nzA[k]
			}
		} else {
			d = v[i]
		}
	} else {
		if sign == 0 {
			d = -v[i]
		} else {
			for k := m.spAT.colind[i-m.nx]; k < m.spAT.colind[i-m.nx+1]; k++ {
				d += v[m.spAT.row[k]] * m.nzAT[k]
			}
		}
	}
	return d
}

// kktResidual writes the right-hand side of the Newton system into r:
// the distance to the active bound for pinned components, the dual
// residual for free variables and the plain multiplier for free rows.
func (m *qpMem) kktResidual(r []float64) {
	for i := 0; i < m.nz; i++ {
		if m.lam[i] > zero {
			r[i] = m.ubz[i] - m.z[i]
		} else if m.lam[i] < zero {
			r[i] = m.lbz[i] - m.z[i]
		} else if i < m.nx {
			r[i] = m.lam[i] - m.infeas[i]
		} else {
			r[i] = m.lam[i]
		}
	}
}

// factorize assembles and factorizes the KKT matrix, refreshing the
// singularity status and the smallest-diagonal witness.
func (m *qpMem) factorize() {
	m.kkt()
	m.qr.factorize(m.nzKKT, m.spKKT)
	m.sing = m.qr.singular(1e-12)
	m.mina, m.imina = m.qr.mina, m.qr.imina
}
