// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Termination specifies the stopping criteria for the solver.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit.
	MaxIterations int
	// Convergence tolerance. Defaulted and validated but not read by the
	// loop, which terminates when no feasibility-improving active-set
	// change exists.
	Tolerance float64
}

// Problem specifies a convex quadratic program
//
//	minimize ½ xᵀHx + gᵀx subject to
//	  - lbx ≤ x ≤ ubx boundaries
//	  - lba ≤ A·x ≤ uba linear constraints
//
// where H is symmetric positive semidefinite. Infinite bounds mean the
// corresponding side is absent; equal finite bounds denote an equality.
type Problem struct {
	H *SpMatrix // The quadratic term, n×n symmetric PSD
	G []float64 // The linear term, length n
	A *SpMatrix // The constraint Jacobian, m×n. May be nil when m = 0
	// Bounds on x and on A·x. A nil slice means unbounded on that side.
	LBX, UBX []float64
	LBA, UBA []float64
	// Stop condition
	Stop Termination
	// How much larger dual than primal error is acceptable
	DuToPr float64
	// Progress output
	Log *Logger
}

// New creates a new active-set solver for the given problem.
func (p *Problem) New() (solver *Solver, err error) {

	if p.H == nil {
		return nil, errors.New("quadratic term is required")
	}
	nx := p.H.Ncol
	a := p.A
	if a == nil {
		a = &SpMatrix{Nrow: 0, Ncol: nx, Colind: make([]int, nx+1)}
	}
	na := a.Nrow

	switch {
	case nx <= 0:
		err = errors.New("problem dimension must greater than 0")
	case p.H.Nrow != nx:
		err = errors.New("quadratic term must be square")
	case len(p.G) != nx:
		err = errors.New("linear term size must equal to n")
	case a.Ncol != nx:
		err = errors.New("constraint jacobian column size must equal to n")
	default:
		if err = p.H.valid("quadratic term"); err == nil {
			err = a.valid("constraint jacobian")
		}
	}
	if err != nil {
		return nil, err
	}

	stop := p.Stop
	if stop.MaxIterations == 0 {
		stop.MaxIterations = 1000
	}
	if stop.Tolerance == zero {
		stop.Tolerance = 1e-8
	}
	duToPr := p.DuToPr
	if duToPr == zero {
		duToPr = 1000
	}
	switch {
	case stop.MaxIterations < 0:
		err = errors.New("max iteration must greater than 0")
	case stop.Tolerance < zero:
		err = errors.New("tolerance must not less than 0")
	case duToPr <= zero:
		err = errors.New("dual to primal weight must greater than 0")
	}
	if err != nil {
		return nil, err
	}

	nz := nx + na
	lbz := stackBounds(p.LBX, p.LBA, nx, na, math.Inf(-1))
	ubz := stackBounds(p.UBX, p.UBA, nx, na, math.Inf(1))

	// Permitted signs for lam, rejecting empty inequality intervals
	neverzero := make([]bool, nz)
	neverupper := make([]bool, nz)
	neverlower := make([]bool, nz)
	for i := 0; i < nz; i++ {
		if lbz[i] > ubz[i] {
			return nil, fmt.Errorf("lower bound exceeds upper bound for component %d", i)
		}
		neverzero[i] = lbz[i] == ubz[i]
		neverupper[i] = math.IsInf(ubz[i], 0)
		neverlower[i] = math.IsInf(lbz[i], 0)
		if neverzero[i] && neverupper[i] && neverlower[i] {
			return nil, fmt.Errorf("no sign possible for component %d", i)
		}
	}

	spH, spA := p.H.pattern(), a.pattern()
	spAT := transPattern(spA)
	solver = &Solver{
		qpSpec{
			nx: nx, na: na, nz: nz,
			spH: spH, spA: spA, spAT: spAT,
			spKKT: kktPattern(spH, spA, spAT),
			nzH:   slices.Clone(p.H.Nz),
			nzA:   slices.Clone(a.Nz),
			g:     slices.Clone(p.G),
			lbz:   lbz, ubz: ubz,
			neverzero: neverzero, neverupper: neverupper, neverlower: neverlower,
			Problem: Problem{
				H: p.H, G: p.G, A: p.A,
				LBX: p.LBX, UBX: p.UBX, LBA: p.LBA, UBA: p.UBA,
				Stop:   stop,
				DuToPr: duToPr,
				Log:    p.Log,
			},
		},
	}
	solver.Log.banner(nx, na)
	return solver, nil
}

func stackBounds(bx, ba []float64, nx, na int, unset float64) []float64 {
	z := make([]float64, nx+na)
	for i := range z {
		z[i] = unset
	}
	copy(z[:nx], bx)
	copy(z[nx:], ba)
	return z
}

// Solver implements a primal-dual active-set method for sparse convex QPs.
type Solver struct {
	qpSpec
}

// Workspace contains the working memory of one solve. All float64 vectors
// are carved from a single allocation and borrowed by the inner routines;
// only z, lam and the activity encoded in the sign of lam carry meaning
// across iterations.
type Workspace struct {
	nx, na  int
	z       []float64
	lam     []float64
	dz      []float64
	dlam    []float64
	infeas  []float64
	tinfeas []float64
	w       []float64
	nzKKT   []float64
	vKKT    []float64
	nzAT    []float64
	iw      []int
	qr      *qrFact
}

// Result contains the final result of a solve.
type Result struct {
	OK      bool      // Whether the solve converged.
	F       float64   // Final objective value.
	X       []float64 // Final solution.
	LamX    []float64 // Final bound multipliers; the sign carries activity.
	LamA    []float64 // Final constraint multipliers.
	Summary           // Solve summary.
}

// Summary contains a summary of the solve.
type Summary struct {
	Status  qpMode // Final status after the active-set loop.
	NumIter int    // Number of iterations performed.
}

// Init allocates the workspace for the solver.
// To avoid race conditions, separate workspaces need to be created for
// each goroutine. But multiple workspaces could share one solver.
func (s *Solver) Init() *Workspace {
	nx, na, nz := s.nx, s.na, s.nz
	kktNNZ := s.spKKT.nnz()
	atNNZ := s.spAT.nnz()

	totwk := 4*nz + 2*nx + (nz + 1) + 2*kktNNZ + atNNZ
	wrk := make([]float64, totwk)

	iz := 0
	il := iz + nz
	id := il + nz
	ie := id + nz
	ii := ie + nz
	it := ii + nx
	iw := it + nx
	ik := iw + nz + 1
	iv := ik + kktNNZ
	ia := iv + kktNNZ

	return &Workspace{
		nx: nx, na: na,
		z:       wrk[iz : iz+nz],
		lam:     wrk[il : il+nz],
		dz:      wrk[id : id+nz],
		dlam:    wrk[ie : ie+nz],
		infeas:  wrk[ii : ii+nx],
		tinfeas: wrk[it : it+nx],
		w:       wrk[iw : iw+nz+1],
		nzKKT:   wrk[ik : ik+kktNNZ],
		vKKT:    wrk[iv : iv+kktNNZ],
		nzAT:    wrk[ia : ia+atNNZ],
		iw:      make([]int, nz+1),
		qr:      newQR(nz),
	}
}
