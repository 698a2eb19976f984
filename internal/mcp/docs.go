package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `listingdraft keeps rental listing drafts and syncs them to the listing API section by section.

Core concepts:
- Draft: one rental being created. It has six sections: head_info, location, price, amenities, rules, files.
- Section status: draft (edited locally), synced (accepted by the API), error (last upload failed).
- Anchor: the remote rental id. It is assigned when head_info uploads successfully; every other section needs it.
- Active draft: the one all set_* and upload tools act on. Drafts are saved automatically.

Default workflow:
1) get_active_draft, or list_drafts + switch_draft to resume, or start_draft for a new rental.
2) Fill sections with set_head_info, set_location, set_price, set_amenities, set_rules and add_files.
3) check_completeness to see what is still missing.
4) upload_section head_info first, then the rest; or persist_draft to upload everything pending.
5) A failed section keeps its data. Fix it and upload again; synced sections are not resent.

Docs:
- listingdraft://docs/workflow
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "listingdraft://docs/workflow",
		Name:        "docs_workflow",
		Title:       "Listing draft workflow",
		Description: "How drafts, sections, anchoring and uploads fit together.",
		Content: `# Listing draft workflow

## Sections and upload order

| Section | Tool | Required fields |
|---|---|---|
| head_info | set_head_info | title, category, description |
| location | set_location | country, city, coordinates |
| price | set_price | amount, currency, period, depositAmount, depositType |
| amenities | set_amenities | none |
| rules | set_rules | none |
| files | add_files | none |

upload_all and persist_draft send sections in this order. head_info always goes first.

## Anchoring

Until head_info is accepted the draft has no remote rental id. Uploading any other
section before that fails locally with "Create rental first before uploading <section>"
and nothing is sent.

## Statuses

- Editing a section marks it draft again, even if it was synced.
- A successful upload marks it synced; upload_all skips synced sections.
- A failed upload marks it error and keeps the data. The message and errors explain why.

## Drafts

- start_draft creates a new draft and makes it active. The previous one stays in list_drafts.
- switch_draft restores a saved draft, including its remote rental id.
- delete_draft removes a draft; deleting the active one starts a fresh draft.
- reset_draft starts a fresh empty draft with a new id; the previous draft stays listed and keeps its remote rental.

## Completeness

check_completeness lists missing required and optional fields. The percentage counts
nine required fields.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
