package mdp

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Values is a value function, one entry per state.
type Values []float64

func NewValues(n int) Values {
	return make(Values, n)
}

func (v Values) Clone() Values {
	return append(Values(nil), v...)
}

// SupDistance returns max_s |v[s]-other[s]|. It panics if the lengths differ.
func (v Values) SupDistance(other Values) float64 {
	return floats.Distance(v, other, math.Inf(1))
}

// Trace records the sup-norm change of every sweep of one convergence loop.
type Trace struct {
	Sweeps int
	Deltas []float64
}

func (t *Trace) Add(delta float64) {
	t.Sweeps++
	t.Deltas = append(t.Deltas, delta)
}

// Last returns the delta of the final sweep, or +Inf before any sweep.
func (t Trace) Last() float64 {
	if len(t.Deltas) == 0 {
		return math.Inf(1)
	}
	return t.Deltas[len(t.Deltas)-1]
}

// Converge calls sweep until it returns a delta below threshold. A positive
// maxSweeps caps the number of sweeps, after which ErrNotConverged is
// returned together with the trace so far.
func Converge(threshold float64, maxSweeps int, logger *slog.Logger, sweep func() (float64, error)) (Trace, error) {
	logger = OrDiscard(logger)
	trace := Trace{}
	for {
		if maxSweeps > 0 && trace.Sweeps >= maxSweeps {
			return trace, fmt.Errorf("%w within %d sweeps: delta=%v threshold=%v", ErrNotConverged, maxSweeps, trace.Last(), threshold)
		}

		delta, err := sweep()
		if err != nil {
			return trace, err
		}
		trace.Add(delta)
		logger.Debug("sweep", "sweep", trace.Sweeps, "delta", delta)

		if delta < threshold {
			return trace, nil
		}
	}
}

// GreedyPolicy returns the one-hot policy that picks, in every state, the
// first action maximising the one-step backup of v.
func GreedyPolicy(b *Base, gamma float64, v Values) (*Policy, error) {
	policy := NewUniformPolicy(len(b.States()), len(b.Actions()))
	q := make([]float64, len(b.Actions()))
	for _, s := range b.States() {
		if _, err := b.ActionValues(s, gamma, v, nil, q); err != nil {
			return nil, err
		}
		policy.SetGreedy(s, floats.MaxIdx(q))
	}
	return policy, nil
}

// OrDiscard returns logger, or a logger that drops everything when logger is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
