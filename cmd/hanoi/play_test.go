package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/aretw0/hanoi/pkg/puzzle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceHint(s domain.State) (domain.Action, bool) {
	return policy.OptimalThreeDisk().Lookup(s.Key())
}

func TestPlayLoop_OptimalGame(t *testing.T) {
	board := puzzle.NewBoard(puzzle.Classic())
	in := strings.NewReader("a c\na b\nc b\na c\nb a\nb c\na c\n")
	var out bytes.Buffer

	require.NoError(t, playLoop(in, &out, board, referenceHint, false))

	assert.True(t, board.IsSolved())
	assert.Contains(t, out.String(), "Solved in 7 moves (optimal is 7).")
}

func TestPlayLoop_Commands(t *testing.T) {
	board := puzzle.NewBoard(puzzle.Classic())
	in := strings.NewReader("hint\nb c\n0 2\nreset\nfoo\nquit\n0 1\n")
	var out bytes.Buffer

	require.NoError(t, playLoop(in, &out, board, referenceHint, false))

	text := out.String()
	assert.Contains(t, text, "hint: disk 0: 0→2 (A → C)")
	assert.Contains(t, text, "error: invalid action disk -1: 1→2: no disk on source peg")
	assert.Contains(t, text, `error: expected <from> <to>, got "foo"`)
	assert.NotContains(t, text, "Solved")

	// The move after quit is never played; reset undid "0 2".
	assert.Equal(t, domain.State{0, 0, 0}, board.State())
	assert.Empty(t, board.Moves())
}

func TestPlayLoop_EndOfInput(t *testing.T) {
	board := puzzle.NewBoard(puzzle.Classic())
	var out bytes.Buffer

	require.NoError(t, playLoop(strings.NewReader("a b"), &out, board, referenceHint, false))
	assert.Equal(t, domain.State{1, 0, 0}, board.State())
}

func TestPlayLoop_UntrainedHasNoHints(t *testing.T) {
	board := puzzle.NewBoard(puzzle.Classic())
	var out bytes.Buffer

	require.NoError(t, playLoop(strings.NewReader("hint\n"), &out, board, nil, false))
	assert.Contains(t, out.String(), "no hint: start with --train N")
	assert.NotContains(t, out.String(), "hint: disk")
}

func TestPlayLoop_HintWithoutLegalMove(t *testing.T) {
	board := puzzle.NewBoard(puzzle.Classic())
	var out bytes.Buffer
	none := func(domain.State) (domain.Action, bool) { return domain.Action{}, false }

	require.NoError(t, playLoop(strings.NewReader("hint\n"), &out, board, none, false))
	assert.Contains(t, out.String(), "no hint: no legal move from this state")
}

func TestParsePeg(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"a", 0, true},
		{"c", 2, true},
		{"1", 1, true},
		{"d", 0, false},
		{"3", 0, false},
		{"-1", 0, false},
		{"ab", 0, false},
	}
	for _, tt := range tests {
		got, err := parsePeg(tt.in, 3)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestProgressHooks(t *testing.T) {
	var out bytes.Buffer
	hooks := progressHooks(&out, 10)

	hooks.OnEpisode(context.Background(), &domain.EpisodeEvent{Episode: 9, Steps: 50})
	assert.Empty(t, out.String())

	hooks.OnEpisode(context.Background(), &domain.EpisodeEvent{Episode: 10, Steps: 7, Reward: 47, Epsilon: 0.5, Solved: true})
	assert.Equal(t, "episode   10  steps   7  reward    47.00  epsilon 0.500  solved true\n", out.String())
}
