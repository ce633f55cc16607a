package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/puzzle"
)

// Overlay contains a played trajectory to highlight on the graph.
type Overlay struct {
	Visited []domain.StateKey
	Current domain.StateKey
}

// GenerateMermaid produces a Mermaid flowchart of the transitions a policy takes.
// It applies semantic styling:
// - Start: ((Circle))
// - Goal: (((Double circle)))
// - Default: [Rectangle]
// Edges are labelled with the move. The overlay, if any, marks visited and current states.
func GenerateMermaid(rules puzzle.Rules, p policy.Map, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	keys := make([]domain.StateKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	start := rules.Start().Key()
	goal := rules.Goal().Key()

	declared := make(map[domain.StateKey]bool)
	declare := func(k domain.StateKey) {
		if declared[k] {
			return
		}
		declared[k] = true

		opener, closer := "[", "]"
		switch k {
		case start:
			opener, closer = "((", "))"
		case goal:
			opener, closer = "(((", ")))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(k), opener, k, closer))
	}

	for _, k := range keys {
		state, err := k.State()
		if err != nil || !rules.ValidState(state) {
			continue
		}
		action := p[k]
		next := rules.Apply(state, action).Key()

		declare(k)
		declare(next)
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", sanitizeMermaidID(k), action, sanitizeMermaidID(next)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.StateKey]bool)
		for _, k := range overlay.Visited {
			if !seen[k] && declared[k] {
				seen[k] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", sanitizeMermaidID(k)))
			}
		}
		if overlay.Current != "" && declared[overlay.Current] {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

// OverlayFor marks every state of a trajectory as visited and its last state as current.
func OverlayFor(traj domain.Trajectory) *Overlay {
	o := &Overlay{Visited: traj.States}
	if n := len(traj.States); n > 0 {
		o.Current = traj.States[n-1]
	}
	return o
}

func sanitizeMermaidID(k domain.StateKey) string {
	return "s_" + strings.ReplaceAll(string(k), domain.KeySeparator, "_")
}
