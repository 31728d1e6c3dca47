// Package gridworld is a rectangular grid environment for the planners in
// mdp/vi and mdp/pi.
//
// Every cell is a state, numbered row-major. A cell with a nonzero value is
// terminal and yields that value as its reward; other cells yield
// DefaultReward. An action moves in its direction with probability MoveProb
// and to each perpendicular direction with probability (1-MoveProb)/2. Moves
// that would leave the grid or enter a blocked cell stay in place.
package gridworld

import (
	"errors"
	"fmt"
	"math"
)

const DefaultMoveProb = 0.8

var (
	ErrEmptyGrid       = errors.New("grid error: grid must have at least one row and one column")
	ErrRaggedGrid      = errors.New("grid error: rows must have the same length")
	ErrBadCellValue    = errors.New("grid error: cell value must be finite")
	ErrBadMoveProb     = errors.New("grid error: move_prob must be within [0, 1]")
	ErrBlockedRange    = errors.New("grid error: blocked cell is outside the grid")
	ErrBlockedTerminal = errors.New("grid error: blocked cell cannot be terminal")
)

type Action int

const (
	Left Action = iota
	Down
	Right
	Up
)

var Actions = []Action{Left, Down, Right, Up}

func (a Action) String() string {
	switch a {
	case Left:
		return "LEFT"
	case Down:
		return "DOWN"
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

func (a Action) Arrow() string {
	switch a {
	case Left:
		return "←"
	case Down:
		return "↓"
	case Right:
		return "→"
	case Up:
		return "↑"
	}
	return "?"
}

func (a Action) Opposite() Action {
	return (a + 2) % 4
}

type Coord struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

type GridWorld struct {
	Grid          [][]float64 `yaml:"grid"`
	Blocked       []Coord     `yaml:"blocked"`
	MoveProb      float64     `yaml:"move_prob"`
	DefaultReward float64     `yaml:"default_reward"`

	agent int
}

// New returns a validated grid world with DefaultMoveProb and the agent at its start cell.
func New(grid [][]float64, blocked ...Coord) (*GridWorld, error) {
	g := &GridWorld{
		Grid:     grid,
		Blocked:  blocked,
		MoveProb: DefaultMoveProb,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Reset()
	return g, nil
}

// Demo is the 4x4 grid with a +1 exit at (0,3) and a -1 exit at (2,1).
func Demo() *GridWorld {
	g, err := New([][]float64{
		{0, 0, 0, 1},
		{0, 0, 0, 0},
		{0, -1, 0, 0},
		{0, 0, 0, 0},
	})
	if err != nil {
		panic(fmt.Sprintf("BUG: %v", err))
	}
	return g
}

func (g *GridWorld) Validate() error {
	if len(g.Grid) == 0 || len(g.Grid[0]) == 0 {
		return ErrEmptyGrid
	}
	cols := len(g.Grid[0])
	for r, row := range g.Grid {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedGrid, r, len(row), cols)
		}
		for c, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: (%d,%d)=%v", ErrBadCellValue, r, c, x)
			}
		}
	}

	if math.IsNaN(g.MoveProb) || g.MoveProb < 0 || g.MoveProb > 1 {
		return fmt.Errorf("%w: %v", ErrBadMoveProb, g.MoveProb)
	}

	for _, b := range g.Blocked {
		if !g.inside(b) {
			return fmt.Errorf("%w: %+v", ErrBlockedRange, b)
		}
		if g.Grid[b.Row][b.Col] != 0 {
			return fmt.Errorf("%w: %+v", ErrBlockedTerminal, b)
		}
	}
	return nil
}

func (g *GridWorld) Rows() int {
	return len(g.Grid)
}

func (g *GridWorld) Cols() int {
	return len(g.Grid[0])
}

func (g *GridWorld) State(c Coord) int {
	return c.Row*g.Cols() + c.Col
}

func (g *GridWorld) Coord(state int) Coord {
	return Coord{Row: state / g.Cols(), Col: state % g.Cols()}
}

func (g *GridWorld) inside(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Rows() && c.Col >= 0 && c.Col < g.Cols()
}

func (g *GridWorld) IsBlocked(c Coord) bool {
	for _, b := range g.Blocked {
		if b == c {
			return true
		}
	}
	return false
}

// Start is the cell the agent is put on by Reset: the bottom-left corner.
func (g *GridWorld) Start() Coord {
	return Coord{Row: g.Rows() - 1, Col: 0}
}

// Agent returns the state the agent is on.
func (g *GridWorld) Agent() int {
	return g.agent
}

func (g *GridWorld) ActionSpaceSize() int {
	return len(Actions)
}

func (g *GridWorld) StateSpaceSize() int {
	return g.Rows() * g.Cols()
}

func (g *GridWorld) Reset() {
	g.agent = g.State(g.Start())
}

func (g *GridWorld) RewardAndTerminal(state int) (float64, bool) {
	c := g.Coord(state)
	if x := g.Grid[c.Row][c.Col]; x != 0 {
		return x, true
	}
	return g.DefaultReward, false
}

func (g *GridWorld) TransitionProbabilities(state, action int) map[int]float64 {
	a := Action(action)
	probs := map[int]float64{}
	for _, d := range Actions {
		if d == a.Opposite() {
			continue
		}
		p := (1 - g.MoveProb) / 2
		if d == a {
			p = g.MoveProb
		}
		probs[g.move(state, d)] += p
	}
	return probs
}

func (g *GridWorld) move(state int, a Action) int {
	c := g.Coord(state)
	next := c
	switch a {
	case Left:
		next.Col--
	case Down:
		next.Row++
	case Right:
		next.Col++
	case Up:
		next.Row--
	}

	if !g.inside(next) || g.IsBlocked(next) {
		return state
	}
	return g.State(next)
}
