package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/sw965/bellman/internal/cli"
	"github.com/sw965/bellman/mdp"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := cli.NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(out, s) {
			t.Errorf("output is missing %q:\n%s", s, out)
		}
	}
}

func TestRootCommand(t *testing.T) {
	root := cli.NewRootCommand()
	if root.Use != "bellman" {
		t.Errorf("Use = %q", root.Use)
	}
	names := map[string]*cobra.Command{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = cmd
	}
	if names["plan"] == nil {
		t.Error("plan subcommand not found")
	}
}

func TestPlanValueIterationPlain(t *testing.T) {
	out, err := executeCommand(t, "plan", "--algo", "vi", "--plain")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out,
		"Value iteration: converged in",
		"1.0000",
		"-1.0000",
		"→",
		"●",
		"rollout: (3,0)",
		"(exit +1)",
	)
	if strings.Contains(out, "Policy iteration") {
		t.Error("policy iteration ran with --algo vi")
	}
}

func TestPlanBothWithChart(t *testing.T) {
	chartPath := filepath.Join(t.TempDir(), "convergence.html")
	out, err := executeCommand(t, "plan", "--plain", "--chart", chartPath, "--rule", "max")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out,
		"Value iteration: converged in",
		"Policy iteration: stable after",
		"rule=max",
		"max |V_vi - V_pi|",
	)

	html, err := os.ReadFile(chartPath)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(html), "value iteration", "policy evaluation 1")
}

func TestPlanRendered(t *testing.T) {
	out, err := executeCommand(t, "plan", "--algo", "pi")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Policy iteration", "1.000", "-1.000", "●")
}

func TestPlanGridFile(t *testing.T) {
	dir := t.TempDir()
	gridPath := filepath.Join(dir, "corridor.yaml")
	if err := os.WriteFile(gridPath, []byte("grid:\n  - [0, 0, 1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "plan", "--grid", gridPath, "--algo", "pi", "--plain")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "→ → ●", "rollout: (0,0) → (0,1) → (0,2)", "(exit +1)")
}

func TestPlanConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bellman.yaml")
	if err := os.WriteFile(cfgPath, []byte("planner:\n  algorithm: vi\noutput:\n  plain: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "plan", "--config", cfgPath, "--gamma", "0.5")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Value iteration", "gamma=0.5")
	if strings.Contains(out, "Policy iteration") {
		t.Error("config file algorithm was ignored")
	}
}

func TestPlanInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "gamma", args: []string{"plan", "--gamma", "2"}, want: mdp.ErrInvalidGamma},
		{name: "sweep cap", args: []string{"plan", "--algo", "vi", "--gamma", "1", "--threshold", "1e-300", "--max-sweeps", "3"}, want: mdp.ErrNotConverged},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := executeCommand(t, tc.args...); !errors.Is(err, tc.want) {
				t.Errorf("want: %v, got: %v", tc.want, err)
			}
		})
	}

	if _, err := executeCommand(t, "plan", "--grid", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing grid file: want error")
	}
}
