// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/curioloop/quadprog/activeset"
)

// problemFile is the on-disk YAML description of a quadratic program.
// H and A are dense rows; absent bounds default to ±inf (YAML spells
// infinities .inf and -.inf).
type problemFile struct {
	H   [][]float64 `yaml:"h"`
	G   []float64   `yaml:"g"`
	A   [][]float64 `yaml:"a"`
	LBX []float64   `yaml:"lbx"`
	UBX []float64   `yaml:"ubx"`
	LBA []float64   `yaml:"lba"`
	UBA []float64   `yaml:"uba"`
	X0  []float64   `yaml:"x0"`
}

func loadProblem(path string) (*problemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf problemFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(pf.H) == 0 {
		return nil, fmt.Errorf("%s: quadratic term h is required", path)
	}
	for _, row := range pf.H {
		if len(row) != len(pf.H) {
			return nil, fmt.Errorf("%s: quadratic term h must be square", path)
		}
	}
	n := len(pf.H)
	for _, row := range pf.A {
		if len(row) != n {
			return nil, fmt.Errorf("%s: constraint row size must equal to %d", path, n)
		}
	}
	return &pf, nil
}

func (pf *problemFile) build(stop activeset.Termination, duToPr float64, log *activeset.Logger) *activeset.Problem {
	var a *activeset.SpMatrix
	if len(pf.A) > 0 {
		a = activeset.SpFromDense(pf.A)
	}
	return &activeset.Problem{
		H:   activeset.SpFromDense(pf.H),
		G:   pf.G,
		A:   a,
		LBX: pf.LBX, UBX: pf.UBX,
		LBA: pf.LBA, UBA: pf.UBA,
		Stop:   stop,
		DuToPr: duToPr,
		Log:    log,
	}
}
