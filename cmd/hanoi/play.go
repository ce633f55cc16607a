package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aretw0/hanoi/internal/presentation/tui"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/puzzle"
	"github.com/spf13/cobra"
)

var errQuit = errors.New("quit")

const playHelp = `Commands:
  <from> <to>   move the top disk, pegs as letters (A C) or indexes (0 2)
  hint          suggest the learned best move
  reset         start over
  quit          leave the game
`

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the puzzle interactively, with hints from a trained agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("train")

		eng, _, err := newEngine(cmd)
		if err != nil {
			return err
		}

		var hint hintFunc
		if episodes > 0 {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := eng.StartLearning(ctx, episodes, 0); err != nil {
				return err
			}
			hint = eng.BestAction
		}

		return playLoop(cmd.InOrStdin(), cmd.OutOrStdout(), eng.NewBoard(), hint, isInteractive())
	},
}

// hintFunc suggests a move. A nil hintFunc means no agent was trained.
type hintFunc func(domain.State) (domain.Action, bool)

// playLoop reads commands until the puzzle is solved, input ends or the user quits.
func playLoop(in io.Reader, out io.Writer, board *puzzle.Board, hint hintFunc, color bool) error {
	rules := board.Rules()
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, playHelp)
	fmt.Fprintln(out, tui.RenderBoard(rules, board.State(), color))

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		err := playCommand(out, board, hint, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		fmt.Fprintln(out, tui.RenderBoard(rules, board.State(), color))
		if board.IsSolved() {
			fmt.Fprintf(out, "Solved in %d moves (optimal is %d).\n", len(board.Moves()), 1<<rules.Disks-1)
			return nil
		}
	}
}

func playCommand(out io.Writer, board *puzzle.Board, hint hintFunc, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprint(out, playHelp)
		return nil
	case "reset":
		board.Reset()
		return nil
	case "hint":
		if hint == nil {
			fmt.Fprintln(out, "no hint: start with --train N to get hints from a trained agent")
			return nil
		}
		action, ok := hint(board.State())
		if !ok {
			fmt.Fprintln(out, "no hint: no legal move from this state")
			return nil
		}
		fmt.Fprintf(out, "hint: %s (%s → %s)\n", action, pegName(action.From), pegName(action.To))
		return nil
	}

	if len(fields) != 2 {
		return fmt.Errorf("expected <from> <to>, got %q", line)
	}
	rules := board.Rules()
	from, err := parsePeg(fields[0], rules.Pegs)
	if err != nil {
		return err
	}
	to, err := parsePeg(fields[1], rules.Pegs)
	if err != nil {
		return err
	}
	return board.MovePeg(from, to)
}

// parsePeg accepts a peg letter (a, b, c) or a 0-based index.
func parsePeg(s string, pegs int) (int, error) {
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		if peg := int(s[0] - 'a'); peg < pegs {
			return peg, nil
		}
		return 0, fmt.Errorf("unknown peg %q", s)
	}
	peg, err := strconv.Atoi(s)
	if err != nil || peg < 0 || peg >= pegs {
		return 0, fmt.Errorf("unknown peg %q", s)
	}
	return peg, nil
}

func pegName(peg int) string {
	return string(rune('A' + peg))
}

func init() {
	playCmd.Flags().Int("train", 300, "Episodes to train the hint agent before playing (0 disables hints)")
	rootCmd.AddCommand(playCmd)
}
