package gridworld_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sw965/bellman/gridworld"
	"github.com/sw965/bellman/mdp"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		grid    [][]float64
		blocked []gridworld.Coord
		want    error
	}{
		{
			name: "demo",
			grid: [][]float64{{0, 0, 0, 1}, {0, 0, 0, 0}, {0, -1, 0, 0}, {0, 0, 0, 0}},
		},
		{
			name: "empty",
			grid: nil,
			want: gridworld.ErrEmptyGrid,
		},
		{
			name: "ragged",
			grid: [][]float64{{0, 1}, {0}},
			want: gridworld.ErrRaggedGrid,
		},
		{
			name: "infinite reward",
			grid: [][]float64{{0, math.Inf(1)}},
			want: gridworld.ErrBadCellValue,
		},
		{
			name:    "blocked outside",
			grid:    [][]float64{{0, 1}},
			blocked: []gridworld.Coord{{Row: 1, Col: 0}},
			want:    gridworld.ErrBlockedRange,
		},
		{
			name:    "blocked terminal",
			grid:    [][]float64{{0, 1}},
			blocked: []gridworld.Coord{{Row: 0, Col: 1}},
			want:    gridworld.ErrBlockedTerminal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gridworld.New(tc.grid, tc.blocked...)
			if !errors.Is(err, tc.want) {
				t.Errorf("want: %v, got: %v", tc.want, err)
			}
		})
	}
}

func TestBadMoveProb(t *testing.T) {
	g := gridworld.Demo()
	g.MoveProb = 1.5
	if err := g.Validate(); !errors.Is(err, gridworld.ErrBadMoveProb) {
		t.Errorf("got %v", err)
	}
}

func TestActionOpposite(t *testing.T) {
	tests := []struct {
		action gridworld.Action
		want   gridworld.Action
	}{
		{action: gridworld.Left, want: gridworld.Right},
		{action: gridworld.Down, want: gridworld.Up},
		{action: gridworld.Right, want: gridworld.Left},
		{action: gridworld.Up, want: gridworld.Down},
	}

	for _, tc := range tests {
		t.Run(tc.action.String(), func(t *testing.T) {
			if got := tc.action.Opposite(); got != tc.want {
				t.Errorf("want: %v, got: %v", tc.want, got)
			}
		})
	}
}

func TestReset(t *testing.T) {
	g := gridworld.Demo()
	g.Reset()
	if got := g.Coord(g.Agent()); got != (gridworld.Coord{Row: 3, Col: 0}) {
		t.Errorf("agent at %+v", got)
	}
}

func TestRewardAndTerminal(t *testing.T) {
	g := gridworld.Demo()
	g.DefaultReward = -0.04

	tests := []struct {
		coord      gridworld.Coord
		wantReward float64
		wantDone   bool
	}{
		{coord: gridworld.Coord{Row: 0, Col: 3}, wantReward: 1, wantDone: true},
		{coord: gridworld.Coord{Row: 2, Col: 1}, wantReward: -1, wantDone: true},
		{coord: gridworld.Coord{Row: 1, Col: 1}, wantReward: -0.04, wantDone: false},
	}

	for _, tc := range tests {
		reward, done := g.RewardAndTerminal(g.State(tc.coord))
		if reward != tc.wantReward || done != tc.wantDone {
			t.Errorf("%+v: want (%v, %v), got (%v, %v)", tc.coord, tc.wantReward, tc.wantDone, reward, done)
		}
	}
}

func TestTransitionProbabilities(t *testing.T) {
	blocked, err := gridworld.New([][]float64{{0, 0, 1}, {0, 0, 0}, {0, 0, 0}}, gridworld.Coord{Row: 1, Col: 1})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		g      *gridworld.GridWorld
		from   gridworld.Coord
		action gridworld.Action
		want   map[gridworld.Coord]float64
	}{
		{
			name:   "open cell",
			g:      gridworld.Demo(),
			from:   gridworld.Coord{Row: 1, Col: 1},
			action: gridworld.Up,
			want: map[gridworld.Coord]float64{
				{Row: 0, Col: 1}: 0.8,
				{Row: 1, Col: 0}: 0.1,
				{Row: 1, Col: 2}: 0.1,
			},
		},
		{
			name:   "corner keeps the agent in place",
			g:      gridworld.Demo(),
			from:   gridworld.Coord{Row: 3, Col: 0},
			action: gridworld.Left,
			want: map[gridworld.Coord]float64{
				{Row: 3, Col: 0}: 0.9,
				{Row: 2, Col: 0}: 0.1,
			},
		},
		{
			name:   "blocked cell keeps the agent in place",
			g:      blocked,
			from:   gridworld.Coord{Row: 1, Col: 0},
			action: gridworld.Right,
			want: map[gridworld.Coord]float64{
				{Row: 1, Col: 0}: 0.8,
				{Row: 0, Col: 0}: 0.1,
				{Row: 2, Col: 0}: 0.1,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.g.TransitionProbabilities(tc.g.State(tc.from), int(tc.action))
			if len(got) != len(tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
			for c, p := range tc.want {
				if q := got[tc.g.State(c)]; math.Abs(p-q) > 1e-12 {
					t.Errorf("%+v: want %v, got %v", c, p, q)
				}
			}
		})
	}
}

func TestTransitionRowsSumToOne(t *testing.T) {
	g := gridworld.Demo()
	for s := 0; s < g.StateSpaceSize(); s++ {
		for a := 0; a < g.ActionSpaceSize(); a++ {
			var sum float64
			for _, p := range g.TransitionProbabilities(s, a) {
				sum += p
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("state %d action %d: sum %v", s, a, sum)
			}
		}
	}
}

func TestLoad(t *testing.T) {
	src := `
grid:
  - [0, 0, 0, 1]
  - [0, 0, 0, -1]
  - [0, 0, 0, 0]
blocked:
  - {row: 1, col: 1}
default_reward: -0.04
`
	g, err := gridworld.Load(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows() != 3 || g.Cols() != 4 {
		t.Errorf("want 3x4, got %dx%d", g.Rows(), g.Cols())
	}
	if g.MoveProb != gridworld.DefaultMoveProb {
		t.Errorf("move_prob: got %v", g.MoveProb)
	}
	if g.DefaultReward != -0.04 {
		t.Errorf("default_reward: got %v", g.DefaultReward)
	}
	if !g.IsBlocked(gridworld.Coord{Row: 1, Col: 1}) {
		t.Error("(1,1) should be blocked")
	}
	if got := g.Coord(g.Agent()); got != g.Start() {
		t.Errorf("agent at %+v", got)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{name: "ragged", src: "grid: [[0, 1], [0]]", want: gridworld.ErrRaggedGrid},
		{name: "bad move_prob", src: "grid: [[0, 1]]\nmove_prob: -1", want: gridworld.ErrBadMoveProb},
		{name: "missing grid", src: "default_reward: 1", want: gridworld.ErrEmptyGrid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := gridworld.Load(strings.NewReader(tc.src)); !errors.Is(err, tc.want) {
				t.Errorf("want: %v, got: %v", tc.want, err)
			}
		})
	}

	if _, err := gridworld.Load(strings.NewReader("grid: [[0, 1]]\nwalls: []")); err == nil {
		t.Error("unknown field: want error")
	}
}

func rightPolicy(g *gridworld.GridWorld) *mdp.Policy {
	policy := mdp.NewUniformPolicy(g.StateSpaceSize(), g.ActionSpaceSize())
	for s := 0; s < g.StateSpaceSize(); s++ {
		policy.SetGreedy(s, int(gridworld.Right))
	}
	return policy
}

func TestRollout(t *testing.T) {
	g, err := gridworld.New([][]float64{{0, 0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	policy := rightPolicy(g)

	path, done := g.Rollout(policy, 10)
	want := []gridworld.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}
	if !done || len(path) != len(want) {
		t.Fatalf("want %v reaching the exit, got %v (done=%v)", want, path, done)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("step %d: want %+v, got %+v", i, want[i], path[i])
		}
	}

	path, done = g.Rollout(policy, 1)
	if done || len(path) != 2 {
		t.Errorf("capped rollout: got %v (done=%v)", path, done)
	}
}

func TestFormatPolicy(t *testing.T) {
	g, err := gridworld.New([][]float64{{0, 0, 1}, {0, 0, -1}}, gridworld.Coord{Row: 1, Col: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := g.FormatPolicy(rightPolicy(g))
	want := "→ → ●\n→ ■ ●\n"
	if got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

func TestFormatValues(t *testing.T) {
	g, err := gridworld.New([][]float64{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	got := g.FormatValues(mdp.Values{0.5, 1})
	if !strings.Contains(got, "0.5000") || !strings.Contains(got, "1.0000") {
		t.Errorf("got %q", got)
	}
}

func TestRender(t *testing.T) {
	g, err := gridworld.New([][]float64{{0, 0, 1}, {0, 0, -1}}, gridworld.Coord{Row: 1, Col: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := g.Render(mdp.Values{0.7, 0.9, 1, 0.6, 0, -1}, rightPolicy(g))
	for _, s := range []string{"0.700", "0.900", "1.000", "-1.000", "→", "●", "■"} {
		if !strings.Contains(out, s) {
			t.Errorf("missing %q in\n%s", s, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines != 2*4 {
		t.Errorf("want 8 lines, got %d:\n%s", lines, out)
	}
}
