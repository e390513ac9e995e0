// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activeset

import (
	"fmt"
	"io"
	"os"
)

var sprintf = fmt.Sprintf

// LogLevel controls the frequency and type of solver output.
type LogLevel int

const (
	// LogNoop no output is generated
	LogNoop LogLevel = -1
	// LogHeader print only the solver banner before the first iteration
	LogHeader LogLevel = 0
	// LogIter print a progress row per iteration
	LogIter LogLevel = 1
	// LogTrace print also the iterate and multiplier vectors
	LogTrace LogLevel = 2
)

// Logger handles progress output for the solver.
type Logger struct {
	Level LogLevel
	Out   io.Writer // Writer for solver output, os.Stdout when nil.
}

func (l *Logger) enable(level LogLevel) bool {
	return l != nil && l.Level >= level
}

func (l *Logger) print(format string, a ...any) {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(out, format, a...)
	} else {
		_, _ = fmt.Fprint(out, format)
	}
}

// banner emits the solver summary before the first solve.
func (l *Logger) banner(nx, na int) {
	if !l.enable(LogHeader) {
		return
	}
	l.print("-------------------------------------------\n")
	l.print("This is quadprog/activeset.\n")
	l.print("Number of variables:                       %9d\n", nx)
	l.print("Number of constraints:                     %9d\n", na)
}

// iterRow emits one progress row, with a column header every ten rows.
func (m *qpMem) iterRow(iter int) {
	if !m.log.enable(LogIter) {
		return
	}
	if iter%10 == 0 {
		m.log.print("%5s %5s %9s %9s %5s %9s %5s %9s %5s %9s %40s\n",
			"Iter", "Sing", "fk", "|pr|", "con", "|du|", "var",
			"min_R", "con", "last_tau", "Note")
	}
	msg := m.msg
	if len(msg) > 40 {
		msg = msg[:40]
	}
	m.log.print("%5d %5d %9.2g %9.2g %5d %9.2g %5d %9.2g %5d %9.2g %40s\n",
		iter, m.sing, m.f, m.pr, m.ipr, m.du, m.idu,
		m.mina, m.imina, m.tau, msg)
}

// printVector dumps a labelled vector at trace level.
func (m *qpMem) printVector(id string, x []float64) {
	if !m.log.enable(LogTrace) {
		return
	}
	m.log.print("%s: [", id)
	for i, v := range x {
		if i != 0 {
			m.log.print(", ")
		}
		m.log.print("%g", v)
	}
	m.log.print("]\n")
}
