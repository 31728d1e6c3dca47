package gridworld

import (
	"maps"
	"slices"

	"github.com/sw965/bellman/mdp"
)

// Rollout plays policy from the start cell. Each step takes the policy's most
// probable action and moves to that action's most likely next cell. It stops
// at a terminal cell or after maxSteps steps, and reports which happened.
// The returned path begins with the start cell.
func (g *GridWorld) Rollout(policy *mdp.Policy, maxSteps int) ([]Coord, bool) {
	g.Reset()
	path := []Coord{g.Coord(g.agent)}
	for step := 0; step < maxSteps; step++ {
		if _, done := g.RewardAndTerminal(g.agent); done {
			return path, true
		}
		g.agent = g.mostLikely(g.agent, policy.Action(g.agent))
		path = append(path, g.Coord(g.agent))
	}
	_, done := g.RewardAndTerminal(g.agent)
	return path, done
}

func (g *GridWorld) mostLikely(state, action int) int {
	probs := g.TransitionProbabilities(state, action)
	nexts := slices.Sorted(maps.Keys(probs))
	best := nexts[0]
	for _, next := range nexts[1:] {
		if probs[next] > probs[best] {
			best = next
		}
	}
	return best
}
