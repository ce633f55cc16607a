package mcp

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*hanoi.Engine, *Server) {
	t.Helper()
	eng, err := hanoi.New(hanoi.WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	return eng, NewServer(context.Background(), eng, nil)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestStartLearningTool(t *testing.T) {
	eng, s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleStartLearning(ctx, callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleStartLearning(ctx, callRequest(map[string]any{"max_episodes": 0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleStartLearning(ctx, callRequest(map[string]any{"max_episodes": 1000, "step_delay_ms": 1}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "learning started")
	require.Eventually(t, eng.IsRunning, time.Second, time.Millisecond)

	res, err = s.handleStartLearning(ctx, callRequest(map[string]any{"max_episodes": 5}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), domain.ErrAlreadyRunning.Error())

	res, err = s.handleStopLearning(ctx, callRequest(nil))
	require.NoError(t, err)
	var status hanoi.Status
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &status))
	assert.False(t, status.Running)

	res, err = s.handleReset(ctx, callRequest(nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &status))
	assert.Zero(t, status.Stats.TotalEpisodes)
}

func TestStatusAndPolicyTools(t *testing.T) {
	eng, s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, eng.StartLearning(ctx, 10, 0))

	status, err := s.handleGetStatus(ctx, callRequest(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, status.Stats.TotalEpisodes)

	res, err := s.handleGetPolicy(ctx, callRequest(nil))
	require.NoError(t, err)
	var pol map[string]domain.Action
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &pol))
	assert.Len(t, pol, 27)
}

func TestSolveTool(t *testing.T) {
	_, s := newTestServer(t)
	ctx := context.Background()

	traj, err := s.handleSolve(ctx, callRequest(nil), SolveArgs{Reference: true})
	require.NoError(t, err)
	assert.True(t, traj.Solved)
	assert.Equal(t, 7, traj.Steps)

	traj, err = s.handleSolve(ctx, callRequest(nil), SolveArgs{})
	require.NoError(t, err)
	assert.Len(t, traj.States, traj.Steps+1)
}

func TestValidateMoveTool(t *testing.T) {
	_, s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleValidateMove(ctx, callRequest(map[string]any{"state": "0|0|0", "disk": 0, "from": 0, "to": 2}))
	require.NoError(t, err)
	assert.Equal(t, "legal: disk 0: 0→2", resultText(t, res))

	res, err = s.handleValidateMove(ctx, callRequest(map[string]any{"state": "0|0|0", "disk": 1, "from": 0, "to": 2}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "illegal: disk 1 is not the top disk")

	res, err = s.handleValidateMove(ctx, callRequest(map[string]any{"state": "bad"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
