package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/juev/envelope/internal/config"
)

type mockClient struct {
	mu       sync.Mutex
	messages []protocol.LogMessageParams
}

func (m *mockClient) Progress(_ context.Context, _ *protocol.ProgressParams) error {
	return nil
}

func (m *mockClient) WorkDoneProgressCreate(_ context.Context, _ *protocol.WorkDoneProgressCreateParams) error {
	return nil
}

func (m *mockClient) LogMessage(_ context.Context, params *protocol.LogMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *params)
	return nil
}

func (m *mockClient) PublishDiagnostics(_ context.Context, _ *protocol.PublishDiagnosticsParams) error {
	return nil
}

func (m *mockClient) ShowMessage(_ context.Context, _ *protocol.ShowMessageParams) error {
	return nil
}

func (m *mockClient) ShowMessageRequest(_ context.Context, _ *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return nil, nil
}

func (m *mockClient) Telemetry(_ context.Context, _ interface{}) error {
	return nil
}

func (m *mockClient) RegisterCapability(_ context.Context, _ *protocol.RegistrationParams) error {
	return nil
}

func (m *mockClient) UnregisterCapability(_ context.Context, _ *protocol.UnregistrationParams) error {
	return nil
}

func (m *mockClient) ApplyEdit(_ context.Context, _ *protocol.ApplyWorkspaceEditParams) (bool, error) {
	return false, nil
}

func (m *mockClient) Configuration(_ context.Context, _ *protocol.ConfigurationParams) ([]interface{}, error) {
	return nil, nil
}

func (m *mockClient) WorkspaceFolders(_ context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

func (m *mockClient) getMessages() []protocol.LogMessageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]protocol.LogMessageParams, len(m.messages))
	copy(result, m.messages)
	return result
}

type testServer struct {
	*Server
	client *mockClient
}

func newTestServer() *testServer {
	srv := NewServer(config.Default(), nil)
	srv.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }
	client := &mockClient{}
	srv.SetClient(client)
	return &testServer{
		Server: srv,
		client: client,
	}
}

// response is what a handler passed to its replier.
type response struct {
	result interface{}
	err    error
}

// call runs the handler for one request and returns the reply.
func (ts *testServer) call(t *testing.T, method string, params interface{}) response {
	t.Helper()

	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	var got response
	replied := false
	reply := func(_ context.Context, result interface{}, err error) error {
		replied = true
		got = response{result: result, err: err}
		return nil
	}

	require.NoError(t, ts.Handler()(context.Background(), reply, req))
	require.True(t, replied, "handler did not reply")
	return got
}

// decode round-trips a reply result through JSON the way the wire would.
func decode(t *testing.T, result interface{}, v interface{}) {
	t.Helper()
	data, err := json.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
