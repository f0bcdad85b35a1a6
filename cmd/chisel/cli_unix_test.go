//go:build unix

package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/workflow"
)

func TestCloseIsGatedByPreCloseHooks(t *testing.T) {
	setupProject(t)
	id := createTask(t, "Gated work")

	mustRun(t, "hook", "set", "pre-close", "true")
	mustRun(t, "hook", "set", "pre-close", "echo nope >&2; exit 2")

	out, err := runChisel(t, "close", id)
	var gate *workflow.GateError
	require.True(t, errors.As(err, &gate), "got %v", err)
	assert.Len(t, gate.Results, 2)
	assert.Contains(t, out, "nope")
	assert.Equal(t, types.StatusOpen, showTask(t, id).Status, "status unchanged after a failed gate")

	var v workflow.ValidateResult
	runJSON(t, &v, "validate", id)
	require.NotNil(t, v.QualityScore)
	assert.Equal(t, 0.5, *v.QualityScore)
	require.NotNil(t, showTask(t, id).QualityScore)

	mustRun(t, "hook", "disable", "2")
	mustRun(t, "close", id, "--reason", "shipped")
	task := showTask(t, id)
	assert.Equal(t, types.StatusDone, task.Status)
	assert.Contains(t, task.Description, "Closed: shipped")
	assert.NotNil(t, task.ClosedAt)
}

func TestCloseJSONReportsHookResults(t *testing.T) {
	setupProject(t)
	id := createTask(t, "Gated json")
	mustRun(t, "hook", "set", "pre-close", "echo nope >&2; exit 2")

	out, err := runChisel(t, "close", id, "--json")
	var gate *workflow.GateError
	require.True(t, errors.As(err, &gate), "got %v", err)

	var body struct {
		Error       string              `json:"error"`
		HookResults []*types.HookResult `json:"hook_results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Contains(t, body.Error, "pre-close")
	require.Len(t, body.HookResults, 1)
	assert.False(t, body.HookResults[0].Success)
	assert.Equal(t, 2, body.HookResults[0].ExitCode)
	assert.Contains(t, body.HookResults[0].Stderr, "nope")
	assert.Equal(t, types.StatusOpen, showTask(t, id).Status)
}

func TestForceCloseSkipsHooks(t *testing.T) {
	setupProject(t)
	id := createTask(t, "Forced")
	mustRun(t, "hook", "set", "pre-close", "false")

	mustRun(t, "close", id, "--force")
	assert.Equal(t, types.StatusDone, showTask(t, id).Status)
}

func TestPostCreateHookSeesTaskID(t *testing.T) {
	setupProject(t)
	mustRun(t, "hook", "set", "post-create", `test -n "$CHISEL_TASK_ID"`)

	var res workflow.CreateResult
	runJSON(t, &res, "create", "Watched")
	require.Len(t, res.HookResults, 1)
	assert.True(t, res.HookResults[0].Success)
}
