// Package mdptest provides table-backed environments for testing planners.
package mdptest

import (
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
)

// Table is an mdp.Env backed by explicit tables. It counts Reset calls and
// any transition query made for a terminal state.
type Table struct {
	Rewards   []float64
	Terminals []bool
	// Transitions[s][a] maps next state to probability. Rows of terminal
	// states may be nil.
	Transitions [][]map[int]float64
	Actions     int

	Resets          int
	TerminalQueries int
}

func (t *Table) ActionSpaceSize() int {
	return t.Actions
}

func (t *Table) StateSpaceSize() int {
	return len(t.Rewards)
}

func (t *Table) Reset() {
	t.Resets++
}

func (t *Table) RewardAndTerminal(state int) (float64, bool) {
	return t.Rewards[state], t.Terminals[state]
}

func (t *Table) TransitionProbabilities(state, action int) map[int]float64 {
	if t.Terminals[state] {
		t.TerminalQueries++
	}
	return t.Transitions[state][action]
}

// SingleTerminal is the one-state environment whose only state is terminal.
func SingleTerminal(reward float64, actions int) *Table {
	return &Table{
		Rewards:     []float64{reward},
		Terminals:   []bool{true},
		Transitions: [][]map[int]float64{nil},
		Actions:     actions,
	}
}

// Chain is a deterministic corridor 0..n-1 with a terminal reward of 1 at
// state n-1. Action 0 moves left (staying at 0), action 1 moves right.
func Chain(n int) *Table {
	t := &Table{
		Rewards:     make([]float64, n),
		Terminals:   make([]bool, n),
		Transitions: make([][]map[int]float64, n),
		Actions:     2,
	}
	t.Rewards[n-1] = 1.0
	t.Terminals[n-1] = true

	for s := 0; s < n-1; s++ {
		left := max(s-1, 0)
		t.Transitions[s] = []map[int]float64{
			{left: 1.0},
			{s + 1: 1.0},
		}
	}
	return t
}

type RandomConfig struct {
	States  int
	Actions int
	// TerminalRate is the probability of each state being terminal.
	TerminalRate float64
	// Branching is the maximum number of distinct next states per action.
	Branching int
	// NonNegative restricts rewards to [0, 1) instead of (-1, 1).
	NonNegative bool
}

// Random draws a table environment from rng.
func Random(c RandomConfig, rng *rand.Rand) *Table {
	t := &Table{
		Rewards:     make([]float64, c.States),
		Terminals:   make([]bool, c.States),
		Transitions: make([][]map[int]float64, c.States),
		Actions:     c.Actions,
	}

	for s := range t.Rewards {
		r := rng.Float64()
		if !c.NonNegative && randx.Bool(rng) {
			r = -r
		}
		t.Rewards[s] = r
		t.Terminals[s] = rng.Float64() < c.TerminalRate
	}

	branching := min(max(c.Branching, 1), c.States)
	for s := range t.Transitions {
		if t.Terminals[s] {
			continue
		}
		t.Transitions[s] = make([]map[int]float64, c.Actions)
		for a := range t.Transitions[s] {
			k := 1 + rng.IntN(branching)
			nexts := rng.Perm(c.States)[:k]
			ws := make([]float64, k)
			var sum float64
			for i := range ws {
				ws[i] = 0.1 + rng.Float64()
				sum += ws[i]
			}

			probs := make(map[int]float64, k)
			for i, next := range nexts {
				probs[next] = ws[i] / sum
			}
			t.Transitions[s][a] = probs
		}
	}
	return t
}
