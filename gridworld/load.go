package gridworld

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a grid world from YAML:
//
//	grid:
//	  - [0, 0, 0, 1]
//	  - [0, 0, 0, 0]
//	  - [0, -1, 0, 0]
//	blocked:
//	  - {row: 1, col: 1}
//	move_prob: 0.8
//	default_reward: -0.04
//
// move_prob defaults to DefaultMoveProb when absent.
func Load(r io.Reader) (*GridWorld, error) {
	g := &GridWorld{MoveProb: DefaultMoveProb}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(g); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Reset()
	return g, nil
}

func LoadFile(path string) (*GridWorld, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
