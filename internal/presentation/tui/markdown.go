package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
)

// PolicyMarkdown renders a policy as a table sorted by state key.
func PolicyMarkdown(p policy.Map) string {
	keys := make([]domain.StateKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var sb strings.Builder
	sb.WriteString("## Policy\n\n| State | Move |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "| `%s` | %s |\n", k, p[k])
	}
	return sb.String()
}

// TrajectoryMarkdown renders a replayed solution.
func TrajectoryMarkdown(traj domain.Trajectory) string {
	var sb strings.Builder
	outcome := "not solved"
	if traj.Solved {
		outcome = "solved"
	}
	fmt.Fprintf(&sb, "## Solution: %s in %d moves\n\n", outcome, traj.Steps)
	sb.WriteString("| # | Move | State |\n|---|---|---|\n")
	if len(traj.States) > 0 {
		fmt.Fprintf(&sb, "| 0 | start | `%s` |\n", traj.States[0])
	}
	for i, a := range traj.Actions {
		fmt.Fprintf(&sb, "| %d | %s | `%s` |\n", i+1, a, traj.States[i+1])
	}
	return sb.String()
}

// StatsMarkdown renders training statistics.
func StatsMarkdown(stats domain.TrainingStats, epsilon float64) string {
	best := "-"
	if stats.BestSteps > 0 {
		best = fmt.Sprintf("%d", stats.BestSteps)
	}

	var sb strings.Builder
	sb.WriteString("## Training\n\n| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Episodes | %d |\n", stats.TotalEpisodes)
	fmt.Fprintf(&sb, "| Solved | %d (%.1f%%) |\n", stats.SuccessfulEpisodes, stats.SuccessRate()*100)
	fmt.Fprintf(&sb, "| Average steps | %.2f |\n", stats.AverageSteps)
	fmt.Fprintf(&sb, "| Best steps | %s |\n", best)
	fmt.Fprintf(&sb, "| Epsilon | %.4f |\n", epsilon)
	return sb.String()
}
