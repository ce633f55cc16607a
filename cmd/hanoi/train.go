package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/internal/presentation/chart"
	"github.com/aretw0/hanoi/internal/presentation/graph"
	"github.com/aretw0/hanoi/internal/presentation/tui"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the agent and replay the learned policy",
	Long: `Runs epsilon-greedy Q-learning for the given number of episodes, then extracts the
greedy policy and replays it from the start state. Ctrl+C stops training early; the
partial result is still reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("episodes")
		delay, _ := cmd.Flags().GetDuration("delay")
		chartPath, _ := cmd.Flags().GetString("chart")
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		progress, _ := cmd.Flags().GetInt("progress")

		out := cmd.OutOrStdout()
		var opts []hanoi.Option
		if progress > 0 {
			opts = append(opts, hanoi.WithLifecycleHooks(progressHooks(out, progress)))
		}

		eng, logger, err := newEngine(cmd, opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interactive := isInteractive()
		if interactive {
			tui.PrintBanner(out)
		}

		if err := eng.StartLearning(ctx, episodes, delay); err != nil {
			return err
		}
		if ctx.Err() != nil {
			logger.Warn("training interrupted", "episodes", eng.Stats().TotalEpisodes)
		}

		traj := eng.SolveWithPolicy()
		if err := printReport(out, eng, traj, !interactive); err != nil {
			return err
		}

		if mermaid {
			fmt.Fprintln(out, graph.GenerateMermaid(eng.Rules(), eng.OptimalPolicy(), graph.OverlayFor(traj)))
		}

		if chartPath != "" {
			if err := chart.WriteFile(chartPath, eng.History()); err != nil {
				if errors.Is(err, chart.ErrNoHistory) {
					logger.Warn("no episodes recorded, chart skipped")
					return nil
				}
				return fmt.Errorf("failed to write chart: %w", err)
			}
			fmt.Fprintf(out, "Learning curve written to %s\n", chartPath)
		}
		return nil
	},
}

// progressHooks prints one line every n episodes.
func progressHooks(w io.Writer, every int) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpisode: func(_ context.Context, ep *domain.EpisodeEvent) {
			if ep.Episode%every != 0 {
				return
			}
			fmt.Fprintf(w, "episode %4d  steps %3d  reward %8.2f  epsilon %.3f  solved %t\n",
				ep.Episode, ep.Steps, ep.Reward, ep.Epsilon, ep.Solved)
		},
	}
}

func printReport(w io.Writer, eng *hanoi.Engine, traj domain.Trajectory, plain bool) error {
	render := tui.NewRenderer(plain)
	md := tui.StatsMarkdown(eng.Stats(), eng.Epsilon()) + "\n" + tui.TrajectoryMarkdown(traj)
	rendered, err := render(md)
	if err != nil {
		return err
	}
	fmt.Fprint(w, rendered)
	return nil
}

func init() {
	trainCmd.Flags().Int("episodes", 300, "Number of episodes to train")
	trainCmd.Flags().Duration("delay", 0, "Pause between steps (e.g. 10ms)")
	trainCmd.Flags().String("chart", "", "Write an HTML learning curve to this path")
	trainCmd.Flags().Bool("mermaid", false, "Print the learned policy as a Mermaid graph")
	trainCmd.Flags().Int("progress", 50, "Print a progress line every N episodes (0 disables)")
	rootCmd.AddCommand(trainCmd)
}
