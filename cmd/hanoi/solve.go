package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/hanoi/internal/presentation/graph"
	"github.com/aretw0/hanoi/internal/presentation/tui"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/spf13/cobra"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Train quietly, then print the greedy solution",
	Long: `Trains for --episodes and replays the greedy policy from the start state.
With --reference the known optimal 3-disk policy is replayed instead, without training.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("episodes")
		reference, _ := cmd.Flags().GetBool("reference")
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		eng, _, err := newEngine(cmd)
		if err != nil {
			return err
		}

		var (
			p    policy.Map
			traj domain.Trajectory
		)
		if reference {
			p = policy.OptimalThreeDisk()
			traj = eng.Solve(p)
		} else {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := eng.StartLearning(ctx, episodes, 0); err != nil {
				return err
			}
			p = eng.OptimalPolicy()
			traj = eng.SolveWithPolicy()
		}

		out := cmd.OutOrStdout()
		render := tui.NewRenderer(!isInteractive())
		rendered, err := render(tui.TrajectoryMarkdown(traj))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)

		if mermaid {
			fmt.Fprintln(out, graph.GenerateMermaid(eng.Rules(), p, graph.OverlayFor(traj)))
		}
		if !traj.Solved {
			return fmt.Errorf("policy did not reach the goal in %d steps", traj.Steps)
		}
		return nil
	},
}

func init() {
	solveCmd.Flags().Int("episodes", 300, "Number of training episodes before solving")
	solveCmd.Flags().Bool("reference", false, "Replay the known optimal 3-disk policy")
	solveCmd.Flags().Bool("mermaid", false, "Print the policy as a Mermaid graph with the path highlighted")
	rootCmd.AddCommand(solveCmd)
}
