package mdp

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Base holds the environment shared by the concrete planners and implements
// the transition expansion and the one-state backup they are built on.
type Base struct {
	env     Env
	actions []int
	states  []int
}

func NewBase(env Env) (*Base, error) {
	if env == nil {
		return nil, ErrNilEnv
	}

	m := env.ActionSpaceSize()
	if m < 1 {
		return nil, fmt.Errorf("%w: ActionSpaceSize=%d", ErrEmptySpace, m)
	}
	n := env.StateSpaceSize()
	if n < 1 {
		return nil, fmt.Errorf("%w: StateSpaceSize=%d", ErrEmptySpace, n)
	}

	return &Base{
		env:     env,
		actions: indices(m),
		states:  indices(n),
	}, nil
}

func indices(n int) []int {
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	return idxs
}

func (b *Base) Env() Env {
	return b.env
}

// Actions returns 0..M-1. The slice is shared and must not be modified.
func (b *Base) Actions() []int {
	return b.actions
}

// States returns 0..N-1. The slice is shared and must not be modified.
func (b *Base) States() []int {
	return b.states
}

// Initialize resets the environment. Planners call it once at the start of every Plan.
func (b *Base) Initialize() {
	b.env.Reset()
}

// Plan always fails: Base only carries the shared machinery, and the
// concrete planners provide Plan themselves.
func (b *Base) Plan(gamma, threshold float64) (Values, error) {
	return nil, ErrNotImplemented
}

// TransitionsAt expands (state, action) into its outcomes. A terminal state
// yields exactly one sentinel Outcome and its transition function is not
// consulted. Otherwise there is one Outcome per next state with nonzero
// probability, in ascending next-state order.
func (b *Base) TransitionsAt(state, action int) ([]Outcome, error) {
	n := len(b.states)
	if state < 0 || state >= n {
		return nil, fmt.Errorf("%w: state=%d n=%d", ErrStateOutOfRange, state, n)
	}
	if action < 0 || action >= len(b.actions) {
		return nil, fmt.Errorf("%w: action=%d m=%d", ErrActionOutOfRange, action, len(b.actions))
	}

	reward, done := b.env.RewardAndTerminal(state)
	if done {
		return []Outcome{{Probability: 1.0, NextState: NoState, Reward: reward, Done: true}}, nil
	}

	probs := b.env.TransitionProbabilities(state, action)
	nexts := slices.Sorted(maps.Keys(probs))
	outcomes := make([]Outcome, 0, len(nexts))

	var sum float64
	for _, next := range nexts {
		p := probs[next]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: state=%d action=%d next=%d p=%v", ErrInvalidProbability, state, action, next, p)
		}
		if next < 0 || next >= n {
			return nil, fmt.Errorf("%w: next state %d from state=%d action=%d", ErrStateOutOfRange, next, state, action)
		}
		sum += p
		if p == 0 {
			continue
		}

		r, d := b.env.RewardAndTerminal(next)
		outcomes = append(outcomes, Outcome{Probability: p, NextState: next, Reward: r, Done: d})
	}

	if math.Abs(sum-1.0) > ProbabilityTolerance {
		return nil, fmt.Errorf("%w: state=%d action=%d sum=%v", ErrInvalidDistribution, state, action, sum)
	}
	return outcomes, nil
}

// ActionValues writes the one-step backup of every action in state into dst:
//
//	dst[a] = Σ weights[a]·p·(r + gamma·v[next]·(1-done))
//
// A nil weights slice weights every action by 1. When state is terminal every
// dst[a] is set to the state's own reward, unweighted, and terminal is true.
func (b *Base) ActionValues(state int, gamma float64, v Values, weights, dst []float64) (terminal bool, err error) {
	m := len(b.actions)
	if len(dst) != m {
		return false, fmt.Errorf("%w: len(dst)=%d m=%d", ErrActionOutOfRange, len(dst), m)
	}
	if weights != nil && len(weights) != m {
		return false, fmt.Errorf("%w: len(weights)=%d m=%d", ErrPolicyShape, len(weights), m)
	}
	if len(v) != len(b.states) {
		return false, fmt.Errorf("%w: len(v)=%d n=%d", ErrStateOutOfRange, len(v), len(b.states))
	}

	for _, a := range b.actions {
		w := 1.0
		if weights != nil {
			w = weights[a]
		}

		outcomes, err := b.TransitionsAt(state, a)
		if err != nil {
			return false, err
		}

		var q float64
		for _, o := range outcomes {
			if o.Terminal() {
				q = o.Reward
				terminal = true
				continue
			}
			continuation := 0.0
			if !o.Done {
				continuation = gamma * v[o.NextState]
			}
			q += w * o.Probability * (o.Reward + continuation)
		}
		dst[a] = q
	}
	return terminal, nil
}
