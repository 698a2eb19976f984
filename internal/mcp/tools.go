package mcp

import (
	"context"
	"encoding/json"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/listingdraft/internal/domain/draft"
)

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func num(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func integer(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func boolean(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func enum(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

// withDefault advertises the value clients should prefill.
func withDefault(schema map[string]any, value string) map[string]any {
	schema["default"] = value
	return schema
}

func arrayOf(description string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": description, "items": items}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	empty := object(map[string]any{})
	sectionKinds := []string{"head_info", "location", "price", "amenities", "rules", "files"}

	return []ToolDefinition{
		// Drafts
		{
			Name:        "start_draft",
			Description: "Start a new empty rental draft and make it active",
			InputSchema: empty,
		},
		{
			Name:        "list_drafts",
			Description: "List saved rental drafts, newest first, with title and sync progress",
			InputSchema: empty,
		},
		{
			Name:        "switch_draft",
			Description: "Make a saved draft the active one",
			InputSchema: object(map[string]any{
				"id": str("Draft id from list_drafts"),
			}, "id"),
		},
		{
			Name:        "delete_draft",
			Description: "Delete a saved draft. Deleting the active draft starts a new one",
			InputSchema: object(map[string]any{
				"id": str("Draft id from list_drafts"),
			}, "id"),
		},
		{
			Name:        "get_active_draft",
			Description: "Get the active draft with its progress and missing fields",
			InputSchema: empty,
		},
		{
			Name:        "reset_draft",
			Description: "Replace the active draft with a fresh empty one; the previous draft stays listed",
			InputSchema: empty,
		},

		// Sections
		{
			Name:        "set_head_info",
			Description: "Replace the basic information of the active draft",
			InputSchema: object(map[string]any{
				"title":           str("Listing title"),
				"category":        str("Property category"),
				"description":     str("Listing description"),
				"profile_picture": str("Cover image URL"),
				"theme_color":     str("Hex color, defaults to #FFFFFF"),
				"year_built":      integer("Year the property was built"),
				"lot_size":        str("Lot size"),
				"floor_number":    integer("Floor number"),
			}),
		},
		{
			Name:        "set_location",
			Description: "Replace the location of the active draft",
			InputSchema: object(map[string]any{
				"country": withDefault(str("Country"), draft.DefaultCountry),
				"state":   str("State or county"),
				"city":    str("City"),
				"address": str("Street address"),
				"coordinates": object(map[string]any{
					"lat":  num("Latitude"),
					"long": num("Longitude"),
				}, "lat", "long"),
			}),
		},
		{
			Name:        "set_price",
			Description: "Replace the rent and deposit terms of the active draft",
			InputSchema: object(map[string]any{
				"amount":            num("Rent amount"),
				"currency":          withDefault(str("Currency code"), draft.DefaultCurrency),
				"period":            enum("Rent period", "daily", "weekly", "monthly", "quarterly", "annually"),
				"depositAmount":     num("Deposit amount"),
				"depositType":       enum("Deposit type", "One month rent", "Two months rent", "Fixed amount", "Negotiable"),
				"isRefundable":      boolean("Whether the deposit is refundable"),
				"minRentPeriod":     integer("Minimum number of periods"),
				"utilitiesIncluded": arrayOf("Utilities included in rent", map[string]any{"type": "string"}),
				"extraFees": arrayOf("Recurring extra fees", object(map[string]any{
					"id":          str("Fee id"),
					"description": str("What the fee covers"),
					"amount":      num("Fee amount"),
				})),
			}),
		},
		{
			Name:        "set_amenities",
			Description: "Replace the amenities of the active draft",
			InputSchema: object(map[string]any{
				"amenities": arrayOf("Amenities offered", object(map[string]any{
					"id":          str("Amenity id"),
					"name":        str("Amenity name"),
					"slug":        str("Amenity slug"),
					"description": str("Amenity description"),
					"icon":        str("Icon name"),
					"is_free":     boolean("Whether the amenity is free"),
					"sort_order":  integer("Display order"),
				})),
			}, "amenities"),
		},
		{
			Name:        "set_rules",
			Description: "Replace the house rules of the active draft",
			InputSchema: object(map[string]any{
				"rules": arrayOf("House rules", object(map[string]any{
					"id":           str("Rule id"),
					"title":        str("Rule title"),
					"description":  str("Rule description"),
					"is_mandatory": boolean("Whether tenants must accept the rule"),
				}, "title")),
			}, "rules"),
		},

		// Files
		{
			Name:        "add_files",
			Description: "Stage files for the active draft. They are sent on the next files upload",
			InputSchema: object(map[string]any{
				"files": arrayOf("Files to stage", object(map[string]any{
					"name":           str("File name"),
					"content_type":   str("MIME type, inferred from the name when omitted"),
					"content_base64": str("Base64 encoded file content"),
				}, "name", "content_base64")),
			}, "files"),
		},
		{
			Name:        "remove_file",
			Description: "Remove a staged file from the active draft",
			InputSchema: object(map[string]any{
				"file_id": str("File id from get_active_draft"),
			}, "file_id"),
		},

		// Sync
		{
			Name:        "upload_section",
			Description: "Upload one section of the active draft to the listing API",
			InputSchema: object(map[string]any{
				"section": enum("Section to upload", sectionKinds...),
			}, "section"),
		},
		{
			Name:        "upload_all",
			Description: "Upload every pending section of the active draft in order",
			InputSchema: empty,
		},
		{
			Name:        "persist_draft",
			Description: "Upload all pending sections and report the aggregate outcome",
			InputSchema: empty,
		},
		{
			Name:        "check_completeness",
			Description: "List required and optional fields still missing from the active draft",
			InputSchema: empty,
		},

		// Activity
		{
			Name:        "get_recent_activity",
			Description: "Get recent draft and sync events",
			InputSchema: object(map[string]any{
				"session_id": str("Filter by draft id"),
				"section":    enum("Filter by section", sectionKinds...),
				"type":       str("Filter by activity type"),
				"limit":      integer("Maximum number of results"),
				"offset":     integer("Offset for pagination"),
			}),
		},
	}
}

// registerTools exposes every catalog tool on the SDK server.
func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := handler.Handle(ctx, getOwnerID(ctx), name, args)
			if err != nil {
				return errorResult(err), nil
			}
			return jsonResult(result)
		})
	}
}

func jsonResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	text := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if data, mErr := json.Marshal(apiErr); mErr == nil {
			text = string(data)
		}
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		IsError: true,
	}
}
