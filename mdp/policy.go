package mdp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Policy is a stochastic policy stored as a states×actions matrix whose row s
// is the action distribution in state s.
type Policy struct {
	m *mat.Dense
}

// NewUniformPolicy returns a policy taking every action with probability
// 1/actions. Both dimensions must be at least 1.
func NewUniformPolicy(states, actions int) *Policy {
	data := make([]float64, states*actions)
	floats.AddConst(1.0/float64(actions), data)
	return &Policy{m: mat.NewDense(states, actions, data)}
}

// NewPolicy wraps rows as a policy after checking that every row is a distribution.
func NewPolicy(rows [][]float64) (*Policy, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrPolicyShape)
	}
	n, m := len(rows), len(rows[0])
	data := make([]float64, 0, n*m)
	for s, row := range rows {
		if len(row) != m {
			return nil, fmt.Errorf("%w: row %d has %d actions, want %d", ErrPolicyShape, s, len(row), m)
		}
		data = append(data, row...)
	}

	p := &Policy{m: mat.NewDense(n, m, data)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Dims() (states, actions int) {
	return p.m.Dims()
}

func (p *Policy) Prob(state, action int) float64 {
	return p.m.At(state, action)
}

// Row returns the action distribution of state. It aliases the policy.
func (p *Policy) Row(state int) []float64 {
	return p.m.RawRowView(state)
}

// Action returns the most probable action in state, the lowest index on ties.
func (p *Policy) Action(state int) int {
	return floats.MaxIdx(p.Row(state))
}

// Actions returns Action(s) for every state.
func (p *Policy) Actions() []int {
	n, _ := p.Dims()
	actions := make([]int, n)
	for s := range actions {
		actions[s] = p.Action(s)
	}
	return actions
}

// SetGreedy replaces the distribution of state with a one-hot on action.
func (p *Policy) SetGreedy(state, action int) {
	row := p.Row(state)
	for i := range row {
		row[i] = 0
	}
	row[action] = 1.0
}

func (p *Policy) Validate() error {
	n, _ := p.Dims()
	for s := 0; s < n; s++ {
		row := p.Row(s)
		for a, x := range row {
			if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: state=%d action=%d p=%v", ErrPolicyDistribution, s, a, x)
			}
		}
		if sum := floats.Sum(row); math.Abs(sum-1.0) > ProbabilityTolerance {
			return fmt.Errorf("%w: state=%d sum=%v", ErrPolicyDistribution, s, sum)
		}
	}
	return nil
}

func (p *Policy) Clone() *Policy {
	return &Policy{m: mat.DenseCopyOf(p.m)}
}

func (p *Policy) Matrix() mat.Matrix {
	return p.m
}
