// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import "math"

const (
	zero = 0.0
	one  = 1.0
	// dmin is the smallest strictly positive normal number.
	// An active multiplier never drops below this magnitude,
	// so activity stays encoded in the sign of lam.
	dmin = 0x1p-1022
)

var inf = math.Inf(1)

// qpMode reports the outcome of a solve.
type qpMode int

const (
	// Solved no further active-set change can improve feasibility.
	Solved qpMode = iota
	// ExceedMaxIter more than max iterations in the active-set loop.
	ExceedMaxIter
	// DirectionFailure no admissible constraint flip restores rank
	// of a singular KKT system.
	DirectionFailure
	// BadProblem input dimensions or bounds unacceptable.
	BadProblem
)

func (m qpMode) String() string {
	switch m {
	case Solved:
		return "solved"
	case ExceedMaxIter:
		return "max iterations reached"
	case DirectionFailure:
		return "direction computation failed"
	case BadProblem:
		return "bad problem"
	}
	return "unknown"
}

// qpSpec holds the immutable problem description shared by all workspaces.
type qpSpec struct {
	// the number of variables
	nx int
	// the number of linear constraint rows
	na int
	// the number of stacked components nx+na
	nz int
	// problem data in CSC form
	spH, spA *spPattern
	nzH, nzA []float64
	g        []float64
	// transpose of the constraint Jacobian
	spAT *spPattern
	// KKT sparsity: union of [[H,Aᵀ],[A,-I]] with full diagonal
	spKKT *spPattern
	// stacked bounds [lbx;lba], [ubx;uba]
	lbz, ubz []float64
	// permitted signs for lam, derived once from the bounds
	neverzero, neverupper, neverlower []bool
	Problem
}

// qpMem is the mutable per-solve state. Every field is a borrow into
// driver-owned storage; only z, lam and the activity encoded in the sign
// of lam carry meaning across iterations.
type qpMem struct {
	*qpSpec
	// objective value at z
	f float64
	// stacked primal variable z = [x;A·x] and multiplier
	z, lam []float64
	// primal-dual search direction
	dz, dlam []float64
	// dual infeasibility and its tangent in the search direction
	infeas, tinfeas []float64
	// numeric KKT nonzeros and a transposed copy for the singular path
	nzKKT, nzAT, vKKT []float64
	// real and integer scratch of length nz+1
	w  []float64
	iw []int
	// QR factorization of the assembled KKT matrix
	qr *qrFact
	// dual to primal error weighting
	duToPr float64
	// last accepted step length
	tau float64
	// nullity of the KKT matrix after factorization
	sing int
	// smallest diagonal of the R factor, with column witness
	mina  float64
	imina int
	// primal and dual error, with component witness
	pr, du   float64
	ipr, idu int
	// note for the iteration log
	msg string
	log *Logger
}

// note records a short message shown in the Note column of the iteration log.
func (m *qpMem) note(format string, a ...any) {
	m.msg = sprintf(format, a...)
}
