package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/juev/envelope/internal/budget"
	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/render"
)

const testJournal = `2023-12-01 custom "envelope" "budget account" "Assets:Checking"
2023-12-01 custom "envelope" "allocate" "Expenses:Food" 40
2024-01-01 custom "envelope" "allocate" "Expenses:Food" 50
2024-02-01 custom "envelope" "allocate" "Expenses:Food" 60
2024-02-01 custom "envelope" "allocate" "Expenses:Rent" 100

2024-01-15 * "Grocer"
  Expenses:Food  30.00 USD
  Assets:Checking
`

func TestServer_Report(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodReport, map[string]interface{}{
		"content": testJournal,
		"start":   "2024-01",
		"end":     "2024-02",
	})
	require.NoError(t, resp.err)

	var view render.ReportView
	decode(t, resp.result, &view)

	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, []string{"2024-01", "2024-02"}, view.Months)
	require.NotNil(t, view.Envelopes)
	assert.Equal(t, []string{"Expenses:Food", "Expenses:Rent"}, view.Envelopes.Categories())

	food, ok := view.Envelopes.Cell("Expenses:Food", "2024-01")
	require.True(t, ok)
	assert.Equal(t, "20.00", food.Available.StringFixed(2))
	assert.Empty(t, ts.client.getMessages())
}

func TestServer_ReportFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.beancount")
	require.NoError(t, os.WriteFile(path, []byte(testJournal), 0o644))

	ts := newTestServer()
	resp := ts.call(t, MethodReport, map[string]interface{}{
		"envelope": map[string]interface{}{"file": path, "today": "2024-01-20"},
	})
	require.NoError(t, resp.err)

	var view render.ReportView
	decode(t, resp.result, &view)
	assert.Equal(t, "2024-01-31", view.End)
}

func TestServer_ReportUsesConfiguredJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.beancount")
	require.NoError(t, os.WriteFile(path, []byte(testJournal), 0o644))

	ts := newTestServer()
	cfg := config.Default()
	cfg.Journal = path
	ts.SetConfig(cfg)

	resp := ts.call(t, MethodReport, nil)
	require.NoError(t, resp.err)
}

func TestServer_ForwardsWarningsAndErrors(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodReport, map[string]interface{}{
		"content": `2024-01-01 custom "envelope" "rollover" "allow"
2024-01-01 custom "envelope" "allocate" "Food"
`,
		"today": "2024-01-15",
	})
	require.NoError(t, resp.err)

	messages := ts.client.getMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, protocol.MessageTypeWarning, messages[0].Type)
	assert.Contains(t, messages[0].Message, "unknown directive")
	assert.Equal(t, protocol.MessageTypeError, messages[1].Type)

	var view render.ReportView
	decode(t, resp.result, &view)
	assert.Len(t, view.Warnings, 1)
	assert.Len(t, view.Errors, 1)
}

func TestServer_Sankey(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodSankey, map[string]interface{}{
		"content": testJournal,
		"start":   "2024-01",
		"end":     "2024-02",
	})
	require.NoError(t, resp.err)

	var sankey budget.Sankey
	decode(t, resp.result, &sankey)
	require.NotEmpty(t, sankey.Nodes)
	assert.Equal(t, "0", sankey.Nodes[0].ID)
	assert.Equal(t, "2024-02", sankey.Nodes[1].Name)
	assert.Equal(t, "0.0.0", sankey.Edges[1].Target)
}

func TestServer_SankeyNamedNode(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodSankey, map[string]interface{}{
		"content": testJournal,
		"today":   "2024-02-10",
		"node":    "2024-01",
	})
	require.NoError(t, resp.err)

	var sankey budget.Sankey
	decode(t, resp.result, &sankey)
	assert.Equal(t, "2024-01", sankey.Nodes[1].Name)
}

func TestServer_SankeyUnknownNode(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodSankey, map[string]interface{}{
		"content": testJournal,
		"node":    "Nowhere",
	})
	require.Error(t, resp.err)
	assert.True(t, errors.Is(resp.err, jsonrpc2.ErrInvalidParams))
}

func TestServer_Intervals(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodIntervals, map[string]interface{}{
		"content": testJournal,
		"today":   "2024-02-10",
		"years":   []interface{}{2024},
	})
	require.NoError(t, resp.err)

	var intervals []budget.Interval
	decode(t, resp.result, &intervals)
	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), intervals[0].Start.UTC())
	assert.Equal(t, "20.00", intervals[0].Balance.StringFixed(2))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), intervals[1].Start.UTC())
}

func TestServer_Batch(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodBatch, map[string]interface{}{
		"content": testJournal,
		"years":   []interface{}{2024, 2023},
	})
	require.NoError(t, resp.err)

	var entries []struct {
		Year   int               `json:"year"`
		Report render.ReportView `json:"report"`
	}
	decode(t, resp.result, &entries)
	require.Len(t, entries, 2)

	assert.Equal(t, 2023, entries[0].Year)
	assert.Equal(t, "2023-01-01", entries[0].Report.Start)
	assert.Equal(t, "2023-12-31", entries[0].Report.End)
	assert.Len(t, entries[0].Report.Months, 12)
	assert.Equal(t, []string{"2023-12"}, entries[0].Report.Envelopes.Months)

	assert.Equal(t, 2024, entries[1].Year)
	assert.Equal(t, []string{"2024-01", "2024-02"}, entries[1].Report.Envelopes.Months)
}

func TestServer_BatchRequiresYears(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodBatch, map[string]interface{}{"content": testJournal})
	assert.True(t, errors.Is(resp.err, jsonrpc2.ErrInvalidParams))
}

func TestServer_RequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params interface{}
		want   error
	}{
		{"unknown method", "envelope/unknown", nil, jsonrpc2.ErrMethodNotFound},
		{"bad date", MethodReport, map[string]interface{}{"content": testJournal, "start": "soon"}, jsonrpc2.ErrInvalidParams},
		{"no journal", MethodReport, map[string]interface{}{}, jsonrpc2.ErrInvalidParams},
		{"missing file", MethodReport, map[string]interface{}{"file": "/nonexistent/main.beancount"}, jsonrpc2.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			resp := ts.call(t, tt.method, tt.params)
			require.Error(t, resp.err)
			assert.True(t, errors.Is(resp.err, tt.want), "got %v", resp.err)
		})
	}
}

func TestServer_BuildFailure(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodReport, map[string]interface{}{
		"content": `2024-01-01 custom "envelope" "allocate" "2024-01" 5`,
		"today":   "2024-01-15",
	})
	require.Error(t, resp.err)

	var cycle *budget.CycleError
	assert.True(t, errors.As(resp.err, &cycle))
}

func TestServer_Shutdown(t *testing.T) {
	ts := newTestServer()

	resp := ts.call(t, MethodShutdown, nil)
	require.NoError(t, resp.err)

	resp = ts.call(t, MethodReport, map[string]interface{}{"content": testJournal})
	assert.True(t, errors.Is(resp.err, jsonrpc2.ErrInvalidRequest))
}

func TestServer_Serve(t *testing.T) {
	serverSide, clientSide := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(config.Default(), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, serverSide) }()

	notes := make(chan protocol.LogMessageParams, 10)
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == "window/logMessage" {
			var params protocol.LogMessageParams
			if err := json.Unmarshal(req.Params(), &params); err == nil {
				notes <- params
			}
		}
		return reply(ctx, nil, nil)
	})
	defer conn.Close()

	var view render.ReportView
	_, err := conn.Call(ctx, MethodReport, map[string]interface{}{
		"content": `option "operating_currency" "US"
` + testJournal,
		"today": "2024-01-20",
	}, &view)
	require.NoError(t, err)
	assert.Equal(t, "USD", view.Currency)

	select {
	case note := <-notes:
		assert.Equal(t, protocol.MessageTypeWarning, note.Type)
		assert.Contains(t, note.Message, "invalid currency")
	case <-time.After(2 * time.Second):
		t.Fatal("no log message received")
	}

	_, err = conn.Call(ctx, "envelope/unknown", nil, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)

	require.NoError(t, conn.Notify(ctx, MethodExit, nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}
