package tui

import (
	"strings"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/puzzle"
	"github.com/muesli/termenv"
)

var diskColors = []string{"#fbbf24", "#f87171", "#a78bfa", "#34d399", "#60a5fa", "#f472b6", "#fb923c", "#94a3b8"}

// RenderBoard draws the pegs side by side, smallest disk on top.
// With color false the output is plain ASCII.
func RenderBoard(rules puzzle.Rules, state domain.State, color bool) string {
	width := 2*rules.Disks + 1
	p := termenv.ColorProfile()

	pegs := make([][]int, rules.Pegs)
	for peg := range pegs {
		pegs[peg] = rules.DisksOnPeg(state, peg)
	}

	var sb strings.Builder
	for row := 0; row < rules.Disks; row++ {
		for peg := 0; peg < rules.Pegs; peg++ {
			disks := pegs[peg]
			// Rows are filled from the bottom up.
			idx := row - (rules.Disks - len(disks))
			if idx < 0 {
				sb.WriteString(center("|", width))
			} else {
				d := disks[idx]
				disk := center(strings.Repeat("=", 2*d+3), width)
				if color {
					disk = termenv.String(disk).Foreground(p.Color(diskColors[d%len(diskColors)])).String()
				}
				sb.WriteString(disk)
			}
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	for peg := 0; peg < rules.Pegs; peg++ {
		sb.WriteString(center(string(rune('A'+peg)), width))
		sb.WriteString(" ")
	}
	sb.WriteString("\n")
	return sb.String()
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
