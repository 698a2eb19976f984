package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/upload"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]string

func (t tokenTable) Token(ownerID string) (string, bool) {
	tok, ok := t[ownerID]
	return tok, ok
}

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, result *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ToolsOverSDK(t *testing.T) {
	drafts := newFakeDrafts()
	var seenToken string
	session := connect(t, Config{
		Services: Services{
			Drafts: drafts,
			Uploads: uploadStub{sectionFn: func(ctx context.Context, _ string, kind draft.Kind) (upload.Result, error) {
				seenToken = listingapi.TokenFromContext(ctx)
				return upload.Result{Section: kind, Success: true, Message: "Head info saved successfully"}, nil
			}},
			Activity: activityStub{},
			Files:    &memFiles{stored: map[string][]byte{}},
		},
		Tokens:        tokenTable{"local": "remote-token"},
		TransportMode: "stdio",
		DefaultOwner:  "local",
	})
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, len(buildToolCatalog()))

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "set_head_info",
		Arguments: map[string]any{"title": "Garden Loft", "category": "apartment", "description": "Quiet"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var view struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &view))
	require.Equal(t, "Garden Loft", view.Title)
	require.Contains(t, drafts.owners, "local")

	result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "upload_section",
		Arguments: map[string]any{"section": "head_info"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "remote-token", seenToken)

	result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "switch_draft",
		Arguments: map[string]any{"id": "missing"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	var apiErr APIError
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &apiErr))
	require.Equal(t, "DRAFT_NOT_FOUND", apiErr.Code)
}

func TestServer_WorkflowResource(t *testing.T) {
	session := connect(t, Config{TransportMode: "stdio"})
	ctx := context.Background()

	resources, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)

	read, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "listingdraft://docs/workflow"})
	require.NoError(t, err)
	require.NotEmpty(t, read.Contents)
	require.Contains(t, read.Contents[0].Text, "Anchoring")
}
