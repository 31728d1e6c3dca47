// Package cli is the bellman command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds a fresh command tree. Each call is independent, so
// tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bellman",
		Short: "Exact dynamic-programming planners for finite MDPs",
		Long: `bellman computes optimal value functions and policies of finite Markov
decision processes with value iteration and policy iteration, and shows
them on grid worlds.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/bellman/config.yaml)")

	root.AddCommand(newPlanCommand())
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}
