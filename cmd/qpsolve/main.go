// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command qpsolve solves a sparse convex quadratic program described in a
// YAML file with the active-set solver.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curioloop/quadprog/activeset"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		maxIter int
		tol     float64
		duToPr  float64
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:          "qpsolve problem.yaml",
		Short:        "Solve a convex QP with a primal-dual active-set method",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProblem(args[0])
			if err != nil {
				return err
			}
			log := &activeset.Logger{Level: activeset.LogIter, Out: cmd.OutOrStdout()}
			if quiet {
				log.Level = activeset.LogNoop
			}
			stop := activeset.Termination{MaxIterations: maxIter, Tolerance: tol}
			solver, err := pf.build(stop, duToPr, log).New()
			if err != nil {
				return err
			}
			res := solver.Solve(pf.X0, nil, nil, solver.Init())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %v iterations: %d\n", res.Status, res.NumIter)
			fmt.Fprintf(out, "cost: %.10g\n", res.F)
			fmt.Fprintf(out, "x: %v\n", res.X)
			fmt.Fprintf(out, "lam_x: %v\n", res.LamX)
			fmt.Fprintf(out, "lam_a: %v\n", res.LamA)
			if !res.OK {
				return fmt.Errorf("solve failed: %v", res.Status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxIter, "max-iter", 1000, "maximum number of active-set iterations")
	cmd.Flags().Float64Var(&tol, "tol", 1e-8, "convergence tolerance")
	cmd.Flags().Float64Var(&duToPr, "du-to-pr", 1000, "acceptable ratio of dual to primal error")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress iteration output")
	return cmd
}
