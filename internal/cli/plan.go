package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"github.com/sw965/bellman/gridworld"
	"github.com/sw965/bellman/internal/chart"
	"github.com/sw965/bellman/internal/config"
	"github.com/sw965/bellman/internal/logging"
	"github.com/sw965/bellman/mdp"
	"github.com/sw965/bellman/mdp/pi"
	"github.com/sw965/bellman/mdp/vi"
)

const rolloutSteps = 100

// flag name -> config key
var planFlagKeys = map[string]string{
	"algo":           "planner.algorithm",
	"gamma":          "planner.gamma",
	"threshold":      "planner.threshold",
	"rule":           "planner.rule",
	"max-sweeps":     "planner.max_sweeps",
	"max-iterations": "planner.max_iterations",
	"grid":           "grid.file",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"plain":          "output.plain",
	"chart":          "output.chart",
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a grid world and print its values and greedy policy",
		Long: `Plan runs value iteration, policy iteration or both on a grid world and
prints the value of every cell with the greedy action. Without --grid the
built-in 4x4 demo grid is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			v, err := config.New(cfgFile)
			if err != nil {
				return err
			}
			for name, key := range planFlagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runPlan(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.String("algo", defaults.Planner.Algorithm, "planner to run: vi, pi or both")
	flags.Float64("gamma", defaults.Planner.Gamma, "discount factor in [0, 1]")
	flags.Float64("threshold", defaults.Planner.Threshold, "stop once a sweep changes no value by this much")
	flags.String("rule", defaults.Planner.Rule, "policy evaluation rule: sum or max")
	flags.Int("max-sweeps", defaults.Planner.MaxSweeps, "sweep cap per convergence loop, 0 for none")
	flags.Int("max-iterations", defaults.Planner.MaxIterations, "policy improvement cap, 0 for none")
	flags.String("grid", defaults.Grid.File, "YAML grid file (default is the demo grid)")
	flags.String("log-level", defaults.Logging.Level, "log level: debug, info, warn or error")
	flags.String("log-format", defaults.Logging.Format, "log format: text or json")
	flags.Bool("plain", defaults.Output.Plain, "print plain matrices without colour")
	flags.String("chart", defaults.Output.Chart, "write an HTML convergence chart to this file")
	return cmd
}

type result struct {
	name   string
	values mdp.Values
	policy *mdp.Policy
	series []chart.Series
	status string
}

func runPlan(out, errOut io.Writer, cfg *config.Config) error {
	logger, err := logging.New(errOut, cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Enabled)
	if err != nil {
		return err
	}

	g := gridworld.Demo()
	if cfg.Grid.File != "" {
		if g, err = gridworld.LoadFile(cfg.Grid.File); err != nil {
			return err
		}
	}
	logger.Info("grid loaded", "rows", g.Rows(), "cols", g.Cols(), "file", cfg.Grid.File)

	var results []result
	algo := strings.ToLower(cfg.Planner.Algorithm)
	if algo == config.AlgorithmVI || algo == config.AlgorithmBoth {
		r, err := runValueIteration(g, cfg.Planner, logger)
		if err != nil {
			return err
		}
		results = append(results, r)
	}
	if algo == config.AlgorithmPI || algo == config.AlgorithmBoth {
		r, err := runPolicyIteration(g, cfg.Planner, logger)
		if err != nil {
			return err
		}
		results = append(results, r)
	}

	au := aurora.NewAurora(!cfg.Output.Plain)
	for _, r := range results {
		fmt.Fprintf(out, "%s: %s\n", au.Bold(au.Cyan(r.name)), r.status)
		if cfg.Output.Plain {
			fmt.Fprintln(out, g.FormatValues(r.values))
			fmt.Fprint(out, g.FormatPolicy(r.policy))
		} else {
			fmt.Fprintln(out, g.Render(r.values, r.policy))
		}
		fmt.Fprintln(out, formatRollout(au, g, r.policy))
		fmt.Fprintln(out)
	}
	if len(results) == 2 {
		fmt.Fprintf(out, "max |V_vi - V_pi| = %.3g\n", results[0].values.SupDistance(results[1].values))
	}

	if cfg.Output.Chart != "" {
		var series []chart.Series
		for _, r := range results {
			series = append(series, r.series...)
		}
		if err := writeChart(cfg.Output.Chart, series); err != nil {
			return err
		}
		logger.Info("chart written", "file", cfg.Output.Chart)
	}
	return nil
}

func runValueIteration(g *gridworld.GridWorld, c config.PlannerConfig, logger *slog.Logger) (result, error) {
	planner, err := vi.New(g)
	if err != nil {
		return result{}, err
	}
	planner.MaxSweeps = c.MaxSweeps
	planner.Logger = logger.With("planner", "vi")

	v, err := planner.Plan(c.Gamma, c.Threshold)
	if err != nil {
		return result{}, fmt.Errorf("value iteration: %w", err)
	}
	policy, err := planner.Policy()
	if err != nil {
		return result{}, err
	}

	trace := planner.Trace()
	return result{
		name:   "Value iteration",
		values: v,
		policy: policy,
		series: []chart.Series{{Name: "value iteration", Deltas: trace.Deltas}},
		status: fmt.Sprintf("converged in %d sweeps (gamma=%g, threshold=%g)", trace.Sweeps, c.Gamma, c.Threshold),
	}, nil
}

func runPolicyIteration(g *gridworld.GridWorld, c config.PlannerConfig, logger *slog.Logger) (result, error) {
	rule, err := pi.ParseRule(c.Rule)
	if err != nil {
		return result{}, err
	}
	planner, err := pi.New(g)
	if err != nil {
		return result{}, err
	}
	planner.Rule = rule
	planner.MaxSweeps = c.MaxSweeps
	planner.MaxIterations = c.MaxIterations
	planner.Logger = logger.With("planner", "pi")

	v, err := planner.Plan(c.Gamma, c.Threshold)
	if err != nil {
		return result{}, fmt.Errorf("policy iteration: %w", err)
	}

	trace := planner.Trace()
	series := make([]chart.Series, len(trace.Evaluations))
	sweeps := 0
	for i, e := range trace.Evaluations {
		series[i] = chart.Series{Name: fmt.Sprintf("policy evaluation %d", i+1), Deltas: e.Deltas}
		sweeps += e.Sweeps
	}
	return result{
		name:   "Policy iteration",
		values: v,
		policy: planner.Policy(),
		series: series,
		status: fmt.Sprintf("stable after %d improvements, %d evaluation sweeps (rule=%v, gamma=%g, threshold=%g)",
			trace.Iterations, sweeps, rule, c.Gamma, c.Threshold),
	}, nil
}

func formatRollout(au aurora.Aurora, g *gridworld.GridWorld, policy *mdp.Policy) string {
	path, done := g.Rollout(policy, rolloutSteps)
	cells := make([]string, len(path))
	for i, c := range path {
		cells[i] = fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	line := strings.Join(cells, " → ")

	if !done {
		return fmt.Sprintf("rollout: %s %v", line, au.Red("(no exit)"))
	}
	reward, _ := g.RewardAndTerminal(g.State(path[len(path)-1]))
	if reward > 0 {
		return fmt.Sprintf("rollout: %s %v", line, au.Green(fmt.Sprintf("(exit %+g)", reward)))
	}
	return fmt.Sprintf("rollout: %s %v", line, au.Red(fmt.Sprintf("(exit %+g)", reward)))
}

func writeChart(path string, series []chart.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.Convergence(f, "bellman convergence", series...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
