// Package chart renders the learning curve as a standalone HTML page.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNoHistory is returned when there are no episodes to plot.
var ErrNoHistory = errors.New("no episode history to plot")

// LearningCurve writes an HTML page with reward, steps and epsilon per episode.
func LearningCurve(w io.Writer, history []domain.EpisodeEvent) error {
	if len(history) == 0 {
		return ErrNoHistory
	}

	episodes := make([]string, 0, len(history))
	rewards := make([]opts.LineData, 0, len(history))
	steps := make([]opts.LineData, 0, len(history))
	epsilons := make([]opts.LineData, 0, len(history))
	for _, ep := range history {
		episodes = append(episodes, fmt.Sprintf("%d", ep.Episode))
		rewards = append(rewards, opts.LineData{Value: ep.Reward})
		steps = append(steps, opts.LineData{Value: ep.Steps})
		epsilons = append(epsilons, opts.LineData{Value: ep.Epsilon})
	}

	progress := charts.NewLine()
	progress.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Learning progress",
			Subtitle: "total reward and steps per episode",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	progress.SetXAxis(episodes).
		AddSeries("reward", rewards).
		AddSeries("steps", steps)

	exploration := charts.NewLine()
	exploration.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Exploration rate",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	exploration.SetXAxis(episodes).AddSeries("epsilon", epsilons)

	page := components.NewPage()
	page.AddCharts(progress, exploration)
	return page.Render(w)
}

// WriteFile renders the learning curve to path, creating parent directories.
func WriteFile(path string, history []domain.EpisodeEvent) error {
	if len(history) == 0 {
		return ErrNoHistory
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := LearningCurve(f, history); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
