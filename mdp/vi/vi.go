// Package vi implements value iteration: repeated in-place Bellman
// optimality backups over every state until the largest change of a sweep
// falls below the threshold.
package vi

import (
	"errors"
	"log/slog"
	"math"

	"github.com/sw965/bellman/mdp"
	"gonum.org/v1/gonum/floats"
)

var ErrNotPlanned = errors.New("vi error: Plan has not completed")

type Planner struct {
	*mdp.Base

	// MaxSweeps caps the number of sweeps. Zero means no cap, in which case
	// a non-contracting model never returns.
	MaxSweeps int
	Logger    *slog.Logger

	gamma  float64
	values mdp.Values
	trace  mdp.Trace
}

func New(env mdp.Env) (*Planner, error) {
	base, err := mdp.NewBase(env)
	if err != nil {
		return nil, err
	}
	return &Planner{Base: base}, nil
}

// Plan resets the environment and returns V*. Values are updated in place
// during a sweep, so later states already see the new values of earlier ones.
func (p *Planner) Plan(gamma, threshold float64) (mdp.Values, error) {
	if err := mdp.CheckParams(gamma, threshold); err != nil {
		return nil, err
	}

	p.Initialize()
	p.values = nil
	logger := mdp.OrDiscard(p.Logger)

	v := mdp.NewValues(len(p.States()))
	q := make([]float64, len(p.Actions()))

	trace, err := mdp.Converge(threshold, p.MaxSweeps, logger, func() (float64, error) {
		var delta float64
		for _, s := range p.States() {
			if _, err := p.ActionValues(s, gamma, v, nil, q); err != nil {
				return 0, err
			}
			best := floats.Max(q)
			delta = math.Max(delta, math.Abs(best-v[s]))
			v[s] = best
		}
		return delta, nil
	})
	p.trace = trace
	if err != nil {
		return nil, err
	}

	logger.Info("value iteration converged", "sweeps", trace.Sweeps, "delta", trace.Last())
	p.gamma = gamma
	p.values = v.Clone()
	return v, nil
}

// Trace returns the sweep history of the last Plan call.
func (p *Planner) Trace() mdp.Trace {
	return p.trace
}

// Policy returns the greedy policy of the values found by the last successful Plan.
func (p *Planner) Policy() (*mdp.Policy, error) {
	if p.values == nil {
		return nil, ErrNotPlanned
	}
	return mdp.GreedyPolicy(p.Base, p.gamma, p.values)
}
