package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/matcher"
	"github.com/uwillc/backroom/internal/profile"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// NewMCPServer creates an MCP server with all directory tools and resources
// registered.
func NewMCPServer(deps AppDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"backroom",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("backroom: find people who offer what your user needs, then broker a consent-based introduction."),
		server.WithRecovery(),
	)

	categories := make([]string, 0, 4)
	for _, c := range matcher.Categories() {
		categories = append(categories, c.String())
	}

	s.AddTool(
		mcp.NewTool("find_collaborators",
			mcp.WithDescription("Search the directory for people matching a free-text need, e.g. \"python\" or \"marketing advice\". Results are ranked by score."),
			mcp.WithString("query", mcp.Description("What the user is looking for"), mcp.Required()),
			mcp.WithNumber("max_results", mcp.Description("Maximum number of results (default 5, max 50)")),
		),
		deps.tool("find_collaborators", mcpFindCollaborators(deps)),
	)

	s.AddTool(
		mcp.NewTool("search_by_category",
			mcp.WithDescription("List profiles with at least one entry in a category containing value."),
			mcp.WithString("category", mcp.Description("Category to search"), mcp.Required(), mcp.Enum(categories...)),
			mcp.WithString("value", mcp.Description("Text to look for"), mcp.Required()),
		),
		deps.tool("search_by_category", mcpSearchByCategory(deps)),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List every profile in the directory with id, name, role and industry."),
		),
		deps.tool("list_profiles", mcpListProfiles(deps)),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Get the full profile for an id."),
			mcp.WithString("profile_id", mcp.Description("Profile id, e.g. jo_doe"), mcp.Required()),
		),
		deps.tool("get_profile", mcpGetProfile(deps)),
	)

	s.AddTool(
		mcp.NewTool("register_profile", profileTool(
			mcp.WithDescription("Register a new profile. The id is derived from the name."),
			mcp.WithString("name", mcp.Description("Display name"), mcp.Required()),
		)...),
		deps.tool("register_profile", mcpRegisterProfile(deps)),
	)

	s.AddTool(
		mcp.NewTool("update_profile", profileTool(
			mcp.WithDescription("Update selected fields of a profile. Omitted fields are left unchanged; an empty value clears the field."),
			mcp.WithString("profile_id", mcp.Description("Profile id to update"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Display name")),
		)...),
		deps.tool("update_profile", mcpUpdateProfile(deps)),
	)

	s.AddTool(
		mcp.NewTool("send_connection_request",
			mcp.WithDescription("Ask another member for an introduction. They see your message and reason and decide whether to share contact details."),
			mcp.WithString("from_user", mcp.Description("Your profile id"), mcp.Required()),
			mcp.WithString("to_user", mcp.Description("Target profile id"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Short introduction")),
			mcp.WithString("reason", mcp.Description("Why you want to connect")),
		),
		deps.tool("send_connection_request", mcpSendConnectionRequest(deps)),
	)

	s.AddTool(
		mcp.NewTool("check_incoming_requests",
			mcp.WithDescription("List pending connection requests addressed to a user."),
			mcp.WithString("user_id", mcp.Description("Your profile id"), mcp.Required()),
		),
		deps.tool("check_incoming_requests", mcpCheckIncoming(deps)),
	)

	s.AddTool(
		mcp.NewTool("respond_to_request",
			mcp.WithDescription("Accept or decline a pending connection request. Email is shared only when accepting with share_email set."),
			mcp.WithString("request_id", mcp.Description("Request id"), mcp.Required()),
			mcp.WithBoolean("accept", mcp.Description("true to accept, false to decline"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Optional reply")),
			mcp.WithBoolean("share_email", mcp.Description("Share your email with the requester (default false)")),
		),
		deps.tool("respond_to_request", mcpRespondToRequest(deps)),
	)

	s.AddTool(
		mcp.NewTool("check_sent_requests",
			mcp.WithDescription("List connection requests a user has sent, with their status."),
			mcp.WithString("user_id", mcp.Description("Your profile id"), mcp.Required()),
		),
		deps.tool("check_sent_requests", mcpCheckSent(deps)),
	)

	s.AddResource(
		mcp.NewResource(
			"backroom://profiles",
			"Directory",
			mcp.WithResourceDescription("All profiles, summarized"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	return s
}

// profileTool appends the optional profile fields shared by register and
// update to opts.
func profileTool(opts ...mcp.ToolOption) []mcp.ToolOption {
	for _, f := range []struct{ name, desc string }{
		{"role", "Current role or title"},
		{"location", "City or region"},
		{"bio", "Short bio"},
		{"offer_free", "What you offer for free"},
		{"offer_condition", "Conditions attached to your offer"},
		{"email", "Contact email, shared only with consent"},
		{"linkedin_url", "LinkedIn profile URL"},
		{"preferred_contact", "Preferred contact channel"},
		{"assistant_endpoint", "Endpoint of your own agent, if any"},
	} {
		opts = append(opts, mcp.WithString(f.name, mcp.Description(f.desc)))
	}
	for _, f := range []struct{ name, desc string }{
		{"tags", "Free-form tags"},
		{"skills", "Skills"},
		{"offers", "What you can help others with"},
		{"seeks", "What you are looking for"},
		{"industry", "Industries you work in"},
	} {
		opts = append(opts, mcp.WithArray(f.name, mcp.Description(f.desc), mcp.WithStringItems()))
	}
	return opts
}

// tool wraps h so every call is counted by outcome.
func (d AppDeps) tool(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	if d.Metrics == nil {
		return h
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		result := "ok"
		if err != nil || (res != nil && res.IsError) {
			result = "error"
		}
		d.Metrics.ToolCallsTotal.WithLabelValues(name, result).Inc()
		return res, err
	}
}

func mcpFindCollaborators(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		limit := clampLimit(req.GetInt("max_results", 0), deps.MaxResults)

		matches, err := deps.Profiles.Search(ctx, query)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		deps.recordSearch(len(matches))
		return mcpJSON(newSearchResult(query, matches, limit))
	}
}

func mcpSearchByCategory(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		profiles, err := deps.Profiles.SearchCategory(ctx, category, value)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(newCategoryResult(category, value, profiles))
	}
}

func mcpListProfiles(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profiles, err := deps.Profiles.List(ctx)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(newProfileList(profiles))
	}
}

func mcpGetProfile(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("profile_id")
		if err != nil {
			return mcpError("profile_id is required"), nil
		}
		p, err := deps.Profiles.Get(ctx, id)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(map[string]any{"profile": newPublicProfile(p), "summary": profile.Summarize(p)})
	}
}

func mcpRegisterProfile(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := req.RequireString("name"); err != nil {
			return mcpError("name is required"), nil
		}
		var p directory.Profile
		if err := decodeArgs(req.GetArguments(), &p); err != nil {
			return mcpError(err.Error()), nil
		}
		p.ID = ""

		created, err := deps.Profiles.Register(ctx, p)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(newPublicProfile(created))
	}
}

func mcpUpdateProfile(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("profile_id")
		if err != nil {
			return mcpError("profile_id is required"), nil
		}
		args := make(map[string]any)
		for k, v := range req.GetArguments() {
			if k != "profile_id" {
				args[k] = v
			}
		}
		var u directory.ProfileUpdate
		if err := decodeArgs(args, &u); err != nil {
			return mcpError(err.Error()), nil
		}

		p, err := deps.Profiles.Update(ctx, id, u)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(map[string]any{"updated": u.Fields(), "profile": newPublicProfile(p)})
	}
}

func mcpSendConnectionRequest(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := req.RequireString("from_user")
		if err != nil {
			return mcpError("from_user is required"), nil
		}
		to, err := req.RequireString("to_user")
		if err != nil {
			return mcpError("to_user is required"), nil
		}

		res, err := deps.Connect.Send(ctx, from, to, req.GetString("message", ""), req.GetString("reason", ""))
		deps.recordConnect("send", err)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(map[string]any{
			"success":    true,
			"request_id": res.Request.ID,
			"message":    fmt.Sprintf("Connection request sent to %s. They will see it next time they check their requests.", res.Target.Name),
			"request":    res.Request,
		})
	}
}

func mcpCheckIncoming(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		incoming, err := deps.Connect.CheckIncoming(ctx, user)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(map[string]any{"count": len(incoming), "requests": incoming})
	}
}

func mcpRespondToRequest(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("request_id")
		if err != nil {
			return mcpError("request_id is required"), nil
		}
		accept, err := req.RequireBool("accept")
		if err != nil {
			return mcpError("accept is required"), nil
		}

		resp, err := deps.Connect.Respond(ctx, id, accept, req.GetString("message", ""), req.GetBool("share_email", false))
		deps.recordConnect("respond", err)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		msg := "Request declined."
		switch {
		case accept && resp.EmailShared:
			msg = "Request accepted. Your email was shared with the requester."
		case accept:
			msg = "Request accepted. No contact details were shared."
		}
		return mcpJSON(map[string]any{"success": true, "message": msg, "request": resp.Request})
	}
}

func mcpCheckSent(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		sent, err := deps.Connect.CheckSent(ctx, user)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(sent)
	}
}

func mcpResourceProfiles(deps AppDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		profiles, err := deps.Profiles.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}

		b, err := json.Marshal(newProfileList(profiles))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// decodeArgs round-trips tool arguments through JSON so the directory types'
// field names and presence rules apply.
func decodeArgs(args map[string]any, v any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", directory.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", directory.ErrInvalidInput, err)
	}
	return nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
