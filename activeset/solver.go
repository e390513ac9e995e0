// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

// buildMem wires the per-solve memory onto the workspace buffers, passes
// the initial guess and corrects the initial active set against the
// permitted-sign masks: equalities are forced active toward the nearer
// bound, impossible activities are cleared.
func (s *Solver) buildMem(w *Workspace, x0, lamX0, lamA0 []float64) *qpMem {
	dzero(w.z)
	dzero(w.lam)
	copy(w.z[:s.nx], x0)
	copy(w.lam[:s.nx], lamX0)
	copy(w.lam[s.nx:], lamA0)

	for i := 0; i < s.nz; i++ {
		if s.neverzero[i] && w.lam[i] == zero {
			if s.neverupper[i] || w.z[i]-s.lbz[i] <= s.ubz[i]-w.z[i] {
				w.lam[i] = -dmin
			} else {
				w.lam[i] = dmin
			}
		} else if s.neverupper[i] && w.lam[i] > zero {
			if s.neverzero[i] {
				w.lam[i] = -dmin
			} else {
				w.lam[i] = zero
			}
		} else if s.neverlower[i] && w.lam[i] < zero {
			if s.neverzero[i] {
				w.lam[i] = dmin
			} else {
				w.lam[i] = zero
			}
		}
	}

	m := &qpMem{
		qpSpec:  &s.qpSpec,
		z:       w.z,
		lam:     w.lam,
		dz:      w.dz,
		dlam:    w.dlam,
		infeas:  w.infeas,
		tinfeas: w.tinfeas,
		nzKKT:   w.nzKKT,
		vKKT:    w.vKKT,
		nzAT:    w.nzAT,
		w:       w.w,
		iw:      w.iw,
		qr:      w.qr,
		duToPr:  s.DuToPr,
		log:     s.Log,
	}
	spTrans(s.nzA, s.spA, m.nzAT, s.spAT, m.iw)
	return m
}

// Solve runs the active-set iteration from the given initial guess using
// workspace w. Nil guesses start from zero. The multiplier guesses carry
// the initial active set in their signs.
func (s *Solver) Solve(x0, lamX0, lamA0 []float64, w *Workspace) *Result {

	if x0 != nil && len(x0) != s.nx {
		panic("initial x dimension not match spec")
	}
	if lamX0 != nil && len(lamX0) != s.nx {
		panic("initial lam_x dimension not match spec")
	}
	if lamA0 != nil && len(lamA0) != s.na {
		panic("initial lam_a dimension not match spec")
	}
	if w.nx != s.nx || w.na != s.na {
		panic("workspace dimension not match spec")
	}

	m := s.buildMem(w, x0, lamX0, lamA0)
	m.printVector("lbz", s.lbz)
	m.printVector("ubz", s.ubz)

	// Constraint to be flipped, if any
	index, sign := -2, 0
	rIndex, rSign := -2, 0

	status := Solved
	iter := 0
	for {
		// Calculate dependent quantities
		m.calcDependent()
		// Make an active set change
		m.flip(&index, &sign, rIndex, rSign)
		m.printVector("z", m.z)
		m.printVector("lam", m.lam)
		// Form and factorize the KKT system
		m.factorize()
		m.iterRow(iter)
		// Successful return if still no change
		if index == -1 {
			break
		}
		if iter >= s.Stop.MaxIterations {
			if m.log.enable(LogHeader) {
				m.log.print("Maximum number of iterations reached\n")
			}
			status = ExceedMaxIter
			break
		}
		// Start new iteration
		iter++
		m.msg = ""
		// Calculate search direction
		if !m.calcStep(&rIndex, &rSign) {
			if m.log.enable(LogHeader) {
				m.log.print("Failed to calculate search direction\n")
			}
			status = DirectionFailure
			break
		}
		m.printVector("dz", m.dz)
		m.printVector("dlam", m.dlam)
		// Line search in the calculated direction
		m.linesearch(&index, &sign)
	}

	x := make([]float64, s.nx)
	lamX := make([]float64, s.nx)
	lamA := make([]float64, s.na)
	copy(x, m.z[:s.nx])
	copy(lamX, m.lam[:s.nx])
	copy(lamA, m.lam[s.nx:])
	return &Result{
		OK: status == Solved,
		F:  m.f, X: x, LamX: lamX, LamA: lamA,
		Summary: Summary{
			Status:  status,
			NumIter: iter,
		},
	}
}
