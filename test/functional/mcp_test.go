package functional_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/listingdraft/internal/domain/upload"
	"github.com/rpggio/listingdraft/internal/testserver"
	"github.com/stretchr/testify/require"
)

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func connectMCP(t *testing.T, ts *testserver.TestServer) *sdkmcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "functional-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport},
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// callTool invokes a tool and returns the JSON text of its result.
func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) json.RawMessage {
	t.Helper()

	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.False(t, result.IsError, "tool error: %s", text.Text)
	return json.RawMessage(text.Text)
}

func TestFunctional_MCPRequiresAuthentication(t *testing.T) {
	ts := testserver.New(t, "token", "owner1")

	body := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"x","version":"1"}},"id":1}`
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/mcp", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFunctional_MCPWizard(t *testing.T) {
	ts := testserver.New(t, "token", "owner1")
	session := connectMCP(t, ts)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 18)

	callTool(t, session, "set_head_info", map[string]any{
		"title":       "Canal House",
		"category":    "house",
		"description": "Three floors",
	})
	callTool(t, session, "set_location", map[string]any{"country": "NL", "city": "Utrecht"})

	raw := callTool(t, session, "upload_all", nil)
	var results []upload.Result
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 2)
	for _, r := range results {
		require.True(t, r.Success, r.Message)
	}

	raw = callTool(t, session, "get_active_draft", nil)
	var view struct {
		Title   string `json:"title"`
		Session struct {
			RemoteID string `json:"remoteId"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Equal(t, "Canal House", view.Title)
	require.Equal(t, testserver.RentalID, view.Session.RemoteID)

	// REST and MCP share the owner's registry
	sess := activeSession(t, ts)
	require.Equal(t, "Canal House", sess.Title())
}

func TestFunctional_MCPToolErrors(t *testing.T) {
	ts := testserver.New(t, "token", "owner1")
	session := connectMCP(t, ts)

	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "switch_draft",
		Arguments: map[string]any{"id": "missing"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "DRAFT_NOT_FOUND")
}
