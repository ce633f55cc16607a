package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the hanoi ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Warm gradient from amber to rose, one colour per line.
	lines := []struct {
		text  string
		color string
	}{
		{" _                       _ ", "#fbbf24"},
		{"| |__   __ _ _ __   ___ (_)", "#fb923c"},
		{"| '_ \\ / _` | '_ \\ / _ \\| |", "#f87171"},
		{"| | | | (_| | | | | (_) | |", "#fb7185"},
		{"|_| |_|\\__,_|_| |_|\\___/|_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
