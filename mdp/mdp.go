// Package mdp provides the shared contract for exact dynamic-programming
// planners over finite Markov decision processes. An Env exposes a known
// model (rewards, terminal flags and transition probabilities over densely
// indexed states and actions), and Base expands it into Outcomes for the
// concrete planners in mdp/vi and mdp/pi.
package mdp

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultGamma     = 0.9
	DefaultThreshold = 1e-4

	// NoState is the NextState of the single Outcome produced for a terminal state.
	NoState = -1

	// ProbabilityTolerance bounds how far a transition row may sum away from 1.
	ProbabilityTolerance = 1e-6
)

var (
	ErrNilEnv     = errors.New("env error: env is nil")
	ErrEmptySpace = errors.New("env error: space size must be at least 1")

	ErrStateOutOfRange  = errors.New("state error: index out of range")
	ErrActionOutOfRange = errors.New("action error: index out of range")

	ErrInvalidProbability  = errors.New("transition error: probability must be finite and within [0, 1]")
	ErrInvalidDistribution = errors.New("transition error: probabilities must sum to 1")

	ErrInvalidGamma     = errors.New("param error: gamma must be within [0, 1]")
	ErrInvalidThreshold = errors.New("param error: threshold must be positive and finite")

	ErrNotImplemented = errors.New("planner error: Plan is not implemented")
	ErrNotConverged   = errors.New("planner error: did not converge")

	ErrPolicyShape        = errors.New("policy error: shape mismatch")
	ErrPolicyDistribution = errors.New("policy error: row is not a probability distribution")
)

// Env is the model a planner queries. States are 0..StateSpaceSize()-1 and
// actions are 0..ActionSpaceSize()-1. RewardAndTerminal and
// TransitionProbabilities must be pure; Reset restores any internal state
// (such as an agent position) and is the only mutating call.
type Env interface {
	ActionSpaceSize() int
	StateSpaceSize() int
	Reset()
	RewardAndTerminal(state int) (float64, bool)
	// TransitionProbabilities is never called for a terminal state.
	TransitionProbabilities(state, action int) map[int]float64
}

// Outcome is one possible result of taking an action in a state.
type Outcome struct {
	Probability float64
	NextState   int
	Reward      float64
	Done        bool
}

// Terminal reports whether o is the sentinel produced for a state that was
// already terminal. Its Reward and Done belong to that state.
func (o Outcome) Terminal() bool {
	return o.NextState == NoState
}

// Planner computes a value function for the environment it wraps.
type Planner interface {
	Plan(gamma, threshold float64) (Values, error)
}

// CheckParams validates the discount factor and the convergence threshold.
func CheckParams(gamma, threshold float64) error {
	if math.IsNaN(gamma) || gamma < 0 || gamma > 1 {
		return fmt.Errorf("%w: gamma=%v", ErrInvalidGamma, gamma)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return fmt.Errorf("%w: threshold=%v", ErrInvalidThreshold, threshold)
	}
	return nil
}
