package gridworld

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sw965/bellman/internal/mathx"
	"github.com/sw965/bellman/mdp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	terminalMark = "●"
	blockedMark  = "■"
	cellWidth    = 9
)

var (
	cellStyle     = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Border(lipgloss.NormalBorder())
	positiveColor = lipgloss.Color("#2ecc71")
	negativeColor = lipgloss.Color("#e74c3c")
	blockedColor  = lipgloss.Color("#555555")
)

// ValueMatrix reshapes v, which must have one entry per cell, into a Rows×Cols matrix.
func (g *GridWorld) ValueMatrix(v mdp.Values) *mat.Dense {
	return mat.NewDense(g.Rows(), g.Cols(), v.Clone())
}

// FormatValues prints v as a plain matrix.
func (g *GridWorld) FormatValues(v mdp.Values) string {
	return fmt.Sprintf("%.4f", mat.Formatted(g.ValueMatrix(v), mat.Squeeze()))
}

// FormatPolicy prints the most probable action of every cell as an arrow.
func (g *GridWorld) FormatPolicy(policy *mdp.Policy) string {
	var sb strings.Builder
	for r := 0; r < g.Rows(); r++ {
		marks := make([]string, g.Cols())
		for c := range marks {
			marks[c] = g.mark(Coord{Row: r, Col: c}, policy)
		}
		sb.WriteString(strings.Join(marks, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (g *GridWorld) mark(c Coord, policy *mdp.Policy) string {
	s := g.State(c)
	if g.IsBlocked(c) {
		return blockedMark
	}
	if _, done := g.RewardAndTerminal(s); done {
		return terminalMark
	}
	if policy == nil {
		return " "
	}
	return Action(policy.Action(s)).Arrow()
}

// Render draws v and, when policy is not nil, the policy's arrows as a
// bordered grid. Terminal cells are coloured by the sign of their reward and
// ordinary cells are shaded by their value relative to the others.
func (g *GridWorld) Render(v mdp.Values, policy *mdp.Policy) string {
	lo, hi := floats.Min(v), floats.Max(v)

	rows := make([]string, g.Rows())
	for r := range rows {
		cells := make([]string, g.Cols())
		for c := range cells {
			coord := Coord{Row: r, Col: c}
			s := g.State(coord)
			text := fmt.Sprintf("%.3f\n%s", v[s], g.mark(coord, policy))

			style := cellStyle
			reward, done := g.RewardAndTerminal(s)
			switch {
			case g.IsBlocked(coord):
				style = style.Foreground(blockedColor)
				text = blockedMark + "\n" + blockedMark
			case done && reward > 0:
				style = style.Foreground(positiveColor).Bold(true)
			case done:
				style = style.Foreground(negativeColor).Bold(true)
			default:
				style = style.Foreground(shade(v[s], lo, hi))
			}
			cells[c] = style.Render(text)
		}
		rows[r] = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func shade(x, lo, hi float64) lipgloss.Color {
	level := int(mathx.Clamp(mathx.ConvertScale(x, lo, hi, 96, 255), 96, 255))
	return lipgloss.Color(fmt.Sprintf("#%02x%02xff", 255-level+96, level))
}
