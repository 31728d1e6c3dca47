// Package pi implements policy iteration. Starting from the uniform policy
// it alternates a full evaluation of the current policy with a greedy
// improvement pass, and stops once an improvement pass changes no state.
package pi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sw965/bellman/mdp"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrNoPolicy    = errors.New("pi error: Initialize has not been called")
	ErrUnknownRule = errors.New("pi error: unknown evaluation rule")
)

// Rule selects how evaluation combines the policy-weighted action values of a state.
type Rule int

const (
	// WeightedSum sets V(s) to Σ_a π(a|s)·Q(s,a), the expected value under π.
	WeightedSum Rule = iota
	// MaxAction sets V(s) to max_a π(a|s)·Q(s,a). It agrees with WeightedSum
	// for one-hot policies whose chosen action has a non-negative value.
	MaxAction
)

func (r Rule) String() string {
	switch r {
	case WeightedSum:
		return "sum"
	case MaxAction:
		return "max"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(s) {
	case "sum", "":
		return WeightedSum, nil
	case "max":
		return MaxAction, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

// Trace is the history of one Plan call.
type Trace struct {
	// Iterations counts improvement passes, including the final stable one.
	Iterations  int
	Evaluations []mdp.Trace
}

type Planner struct {
	*mdp.Base

	Rule Rule
	// MaxSweeps caps the sweeps of each evaluation, MaxIterations the number
	// of improvement passes. Zero means no cap.
	MaxSweeps     int
	MaxIterations int
	Logger        *slog.Logger

	policy *mdp.Policy
	trace  Trace
}

func New(env mdp.Env) (*Planner, error) {
	base, err := mdp.NewBase(env)
	if err != nil {
		return nil, err
	}
	return &Planner{Base: base}, nil
}

// Initialize resets the environment and the policy to uniform.
func (p *Planner) Initialize() {
	p.Base.Initialize()
	p.policy = mdp.NewUniformPolicy(len(p.States()), len(p.Actions()))
}

// Evaluate computes the value of the current policy from zero values, to the
// same in-place sweep and threshold rule as value iteration.
func (p *Planner) Evaluate(gamma, threshold float64) (mdp.Values, mdp.Trace, error) {
	if p.policy == nil {
		return nil, mdp.Trace{}, ErrNoPolicy
	}

	v := mdp.NewValues(len(p.States()))
	q := make([]float64, len(p.Actions()))

	trace, err := mdp.Converge(threshold, p.MaxSweeps, p.Logger, func() (float64, error) {
		var delta float64
		for _, s := range p.States() {
			terminal, err := p.ActionValues(s, gamma, v, p.policy.Row(s), q)
			if err != nil {
				return 0, err
			}

			var x float64
			switch {
			case terminal:
				x = q[0]
			case p.Rule == MaxAction:
				x = floats.Max(q)
			default:
				x = floats.Sum(q)
			}
			delta = math.Max(delta, math.Abs(x-v[s]))
			v[s] = x
		}
		return delta, nil
	})
	if err != nil {
		return nil, trace, err
	}
	return v, trace, nil
}

// Improve makes the policy greedy with respect to v in every state and
// reports whether no state's most probable action changed.
func (p *Planner) Improve(gamma float64, v mdp.Values) (bool, error) {
	if p.policy == nil {
		return false, ErrNoPolicy
	}

	stable := true
	q := make([]float64, len(p.Actions()))
	for _, s := range p.States() {
		if _, err := p.ActionValues(s, gamma, v, nil, q); err != nil {
			return false, err
		}
		best := floats.MaxIdx(q)
		if p.policy.Action(s) != best {
			stable = false
		}
		p.policy.SetGreedy(s, best)
	}
	return stable, nil
}

// Plan resets the environment and the policy, then evaluates and improves
// until the policy is stable. It returns the values of the last evaluation.
func (p *Planner) Plan(gamma, threshold float64) (mdp.Values, error) {
	if err := mdp.CheckParams(gamma, threshold); err != nil {
		return nil, err
	}
	if p.Rule != WeightedSum && p.Rule != MaxAction {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRule, p.Rule)
	}

	p.Initialize()
	p.trace = Trace{}
	logger := mdp.OrDiscard(p.Logger)

	for {
		if p.MaxIterations > 0 && p.trace.Iterations >= p.MaxIterations {
			return nil, fmt.Errorf("%w within %d improvement passes", mdp.ErrNotConverged, p.MaxIterations)
		}

		v, evaluation, err := p.Evaluate(gamma, threshold)
		p.trace.Evaluations = append(p.trace.Evaluations, evaluation)
		if err != nil {
			return nil, err
		}

		stable, err := p.Improve(gamma, v)
		if err != nil {
			return nil, err
		}
		p.trace.Iterations++
		logger.Debug("policy improvement", "iteration", p.trace.Iterations, "sweeps", evaluation.Sweeps, "stable", stable)

		if stable {
			logger.Info("policy iteration converged", "iterations", p.trace.Iterations, "rule", p.Rule.String())
			return v, nil
		}
	}
}

// Policy returns a copy of the current policy, or nil before Initialize.
func (p *Planner) Policy() *mdp.Policy {
	if p.policy == nil {
		return nil
	}
	return p.policy.Clone()
}

func (p *Planner) Trace() Trace {
	return p.trace
}
