package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/schedule"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Event", "Count"}, [][]string{{"e1", "3"}, {"e2"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "Event")
	assert.NotContains(t, out, "EVENT", "headers keep their case")
	assert.Contains(t, out, "e1")
	assert.Len(t, strings.Split(out, "\n"), 6, "border, header, separator, two rows, border")

	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestEmitWritesJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	c := &commandContext{}
	result := &capture.QueueCheckResult{RunID: "r1", Action: capture.ActionNotDue}
	require.NoError(t, c.emit(cmd, result, []string{"Field", "Value"}, queueCheckRows(result), nil))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "not_due", decoded["action"])
}

func TestRows(t *testing.T) {
	rows := autoQueueRows(&capture.AutoQueueResult{
		RunID:     "r1",
		Queued:    1,
		QueuedIDs: []string{"e1"},
		Errors:    []capture.ItemError{{EventID: "e2", Error: "throttled"}},
	})
	assert.Contains(t, rows, []string{"Queued ids", "e1"})
	assert.Contains(t, rows, []string{"Error", "e2 throttled"})

	rows = instanceRows(&schedule.Result{InstanceID: "i-1", Action: schedule.ActionMarketClosed, Reason: "market is not open today"})
	assert.Equal(t, [][]string{
		{"Instance", "i-1"},
		{"Action", "market_closed"},
		{"Reason", "market is not open today"},
	}, rows)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{{"autoqueue"}, {"queuecheck"}, {"queue", "list"}, {"queue", "show"}, {"instance", "start"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
