package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/uwillc/backroom/internal/connect"
)

// --- helpers ---

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func callOK(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) string {
	t.Helper()
	result, err := h(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("%s: unexpected tool error: %s", name, toolText(t, result))
	}
	return toolText(t, result)
}

func callErr(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) string {
	t.Helper()
	result, err := h(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("%s: tool failures must not be protocol errors: %v", name, err)
	}
	if !result.IsError {
		t.Fatalf("%s: expected IsError result, got %s", name, toolText(t, result))
	}
	return toolText(t, result)
}

func unmarshalText[T any](t *testing.T, text string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("decoding %q: %v", text, err)
	}
	return v
}

func seedDirectory(t *testing.T, deps AppDeps) {
	t.Helper()
	for _, args := range []map[string]interface{}{
		{"name": "Alice", "role": "Founder", "seeks": []string{"python help"}},
		{"name": "Bob", "role": "Engineer", "offers": []string{"python mentoring", "python code review"}, "email": "bob@example.com", "linkedin_url": "https://l/bob"},
		{"name": "Carol", "role": "Designer", "skills": []string{"figma"}, "industry": []string{"e-commerce"}},
	} {
		callOK(t, mcpRegisterProfile(deps), "register_profile", args)
	}
}

// --- tests ---

func TestNewMCPServer_Registers(t *testing.T) {
	if s := NewMCPServer(newTestDeps(t)); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_RegisterProfile(t *testing.T) {
	deps := newTestDeps(t)

	text := callOK(t, mcpRegisterProfile(deps), "register_profile", map[string]interface{}{
		"name":   "Jo Doe",
		"id":     "sneaky",
		"skills": []interface{}{"go", "sql"},
	})
	p := unmarshalText[PublicProfile](t, text)
	if p.ID != "jo_doe" {
		t.Errorf("id = %q, want jo_doe", p.ID)
	}
	if len(p.Skills) != 2 {
		t.Errorf("skills = %v", p.Skills)
	}

	msg := callErr(t, mcpRegisterProfile(deps), "register_profile", map[string]interface{}{"name": "jo-doe"})
	if !strings.Contains(msg, "already exists") {
		t.Errorf("duplicate message = %q", msg)
	}

	callErr(t, mcpRegisterProfile(deps), "register_profile", map[string]interface{}{})
	callErr(t, mcpRegisterProfile(deps), "register_profile", map[string]interface{}{"name": "X", "skills": "not-a-list"})
}

func TestMCPTool_UpdateProfile(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	text := callOK(t, mcpUpdateProfile(deps), "update_profile", map[string]interface{}{
		"profile_id": "bob",
		"role":       "Staff Engineer",
	})
	res := unmarshalText[struct {
		Updated []string      `json:"updated"`
		Profile PublicProfile `json:"profile"`
	}](t, text)
	if len(res.Updated) != 1 || res.Updated[0] != "role" {
		t.Errorf("updated = %v, want [role]", res.Updated)
	}
	if res.Profile.Role != "Staff Engineer" || len(res.Profile.Offers) != 2 || !res.Profile.HasEmail {
		t.Errorf("profile = %+v", res.Profile)
	}

	callErr(t, mcpUpdateProfile(deps), "update_profile", map[string]interface{}{"profile_id": "bob"})
	callErr(t, mcpUpdateProfile(deps), "update_profile", map[string]interface{}{"profile_id": "ghost", "role": "x"})
}

func TestMCPTool_FindCollaborators(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	text := callOK(t, mcpFindCollaborators(deps), "find_collaborators", map[string]interface{}{"query": "python"})
	res := unmarshalText[SearchResult](t, text)
	if res.MatchesFound != 2 {
		t.Fatalf("matches_found = %d, want 2", res.MatchesFound)
	}
	if res.Results[0].ID != "bob" || res.Results[0].Score != 6 || res.Results[0].LinkedIn != "https://l/bob" {
		t.Errorf("top = %+v", res.Results[0])
	}
	if res.Results[1].ID != "alice" || res.Results[1].Score != 2 {
		t.Errorf("second = %+v", res.Results[1])
	}

	text = callOK(t, mcpFindCollaborators(deps), "find_collaborators", map[string]interface{}{"query": "python", "max_results": 1})
	res = unmarshalText[SearchResult](t, text)
	if res.MatchesFound != 2 || len(res.Results) != 1 {
		t.Errorf("truncated result = %+v", res)
	}

	text = callOK(t, mcpFindCollaborators(deps), "find_collaborators", map[string]interface{}{"query": "underwater basket weaving"})
	res = unmarshalText[SearchResult](t, text)
	if res.MatchesFound != 0 || len(res.Results) != 0 {
		t.Errorf("no-match result = %+v", res)
	}

	callErr(t, mcpFindCollaborators(deps), "find_collaborators", map[string]interface{}{"query": "   "})
	callErr(t, mcpFindCollaborators(deps), "find_collaborators", map[string]interface{}{})
}

func TestMCPTool_SearchByCategory(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	text := callOK(t, mcpSearchByCategory(deps), "search_by_category", map[string]interface{}{"category": "industry", "value": "commerce"})
	res := unmarshalText[CategoryResult](t, text)
	if res.MatchesFound != 1 || res.Results[0].ID != "carol" {
		t.Errorf("result = %+v", res)
	}

	msg := callErr(t, mcpSearchByCategory(deps), "search_by_category", map[string]interface{}{"category": "hobbies", "value": "x"})
	if !strings.Contains(msg, "invalid input") {
		t.Errorf("message = %q", msg)
	}
}

func TestMCPTool_ListAndGetProfile(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	list := unmarshalText[ProfileList](t, callOK(t, mcpListProfiles(deps), "list_profiles", nil))
	if list.Count != 3 || list.Profiles[0].ID != "alice" || list.Profiles[2].ID != "carol" {
		t.Errorf("list = %+v", list)
	}

	text := callOK(t, mcpGetProfile(deps), "get_profile", map[string]interface{}{"profile_id": "carol"})
	if !strings.Contains(text, `"summary":"Carol, Designer.`) {
		t.Errorf("get_profile = %s", text)
	}

	msg := callErr(t, mcpGetProfile(deps), "get_profile", map[string]interface{}{"profile_id": "nobody"})
	if !strings.Contains(msg, "not found") {
		t.Errorf("message = %q", msg)
	}
}

func TestMCPTool_EmailWithheld(t *testing.T) {
	deps := newTestDeps(t)
	const secret = "jo@secret.example"

	outputs := map[string]string{
		"register_profile": callOK(t, mcpRegisterProfile(deps), "register_profile", map[string]interface{}{"name": "Jo Doe", "email": secret}),
		"get_profile":      callOK(t, mcpGetProfile(deps), "get_profile", map[string]interface{}{"profile_id": "jo_doe"}),
		"update_profile":   callOK(t, mcpUpdateProfile(deps), "update_profile", map[string]interface{}{"profile_id": "jo_doe", "role": "CTO"}),
		"list_profiles":    callOK(t, mcpListProfiles(deps), "list_profiles", nil),
	}
	for tool, text := range outputs {
		if strings.Contains(text, secret) {
			t.Errorf("%s reveals the email: %s", tool, text)
		}
	}

	res, err := mcpResourceProfiles(deps)(context.Background(), makeReadResourceRequest("backroom://profiles"))
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || strings.Contains(tc.Text, secret) {
		t.Errorf("profiles resource reveals the email: %+v", res[0])
	}

	got := unmarshalText[struct {
		Profile PublicProfile `json:"profile"`
	}](t, outputs["get_profile"])
	if !got.Profile.HasEmail || got.Profile.ID != "jo_doe" {
		t.Errorf("profile = %+v", got.Profile)
	}
}

func TestMCPTool_ConnectionFlow(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	text := callOK(t, mcpSendConnectionRequest(deps), "send_connection_request", map[string]interface{}{
		"from_user": "alice", "to_user": "bob", "message": "hi", "reason": "python help",
	})
	sent := unmarshalText[struct {
		RequestID string `json:"request_id"`
		Message   string `json:"message"`
	}](t, text)
	if sent.RequestID == "" || !strings.Contains(sent.Message, "Bob") {
		t.Errorf("send result = %+v", sent)
	}

	msg := callErr(t, mcpSendConnectionRequest(deps), "send_connection_request", map[string]interface{}{"from_user": "alice", "to_user": "bob"})
	if !strings.Contains(msg, "wait for their response") {
		t.Errorf("duplicate message = %q", msg)
	}
	msg = callErr(t, mcpSendConnectionRequest(deps), "send_connection_request", map[string]interface{}{"from_user": "zed", "to_user": "bob"})
	if !strings.Contains(msg, "register first") {
		t.Errorf("unknown sender message = %q", msg)
	}

	incoming := unmarshalText[struct {
		Count    int                       `json:"count"`
		Requests []connect.IncomingRequest `json:"requests"`
	}](t, callOK(t, mcpCheckIncoming(deps), "check_incoming_requests", map[string]interface{}{"user_id": "bob"}))
	if incoming.Count != 1 || incoming.Requests[0].From.Role != "Founder" {
		t.Errorf("incoming = %+v", incoming)
	}

	text = callOK(t, mcpRespondToRequest(deps), "respond_to_request", map[string]interface{}{
		"request_id": sent.RequestID, "accept": true, "share_email": true,
	})
	if !strings.Contains(text, "bob@example.com") {
		t.Errorf("respond result missing shared email: %s", text)
	}

	msg = callErr(t, mcpRespondToRequest(deps), "respond_to_request", map[string]interface{}{"request_id": sent.RequestID, "accept": false})
	if !strings.Contains(msg, "request already accepted") {
		t.Errorf("second respond message = %q", msg)
	}
	callErr(t, mcpRespondToRequest(deps), "respond_to_request", map[string]interface{}{"request_id": sent.RequestID})

	out := unmarshalText[connect.SentRequests](t, callOK(t, mcpCheckSent(deps), "check_sent_requests", map[string]interface{}{"user_id": "alice"}))
	if out.Summary.Accepted != 1 || out.Requests[0].To.Name != "Bob" {
		t.Errorf("sent = %+v", out)
	}
}

func TestMCPTool_RespondWithoutShare(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)
	text := callOK(t, mcpSendConnectionRequest(deps), "send_connection_request", map[string]interface{}{"from_user": "alice", "to_user": "bob"})
	id := unmarshalText[struct {
		RequestID string `json:"request_id"`
	}](t, text).RequestID

	text = callOK(t, mcpRespondToRequest(deps), "respond_to_request", map[string]interface{}{"request_id": id, "accept": true})
	if strings.Contains(text, "bob@example.com") {
		t.Errorf("email leaked without share_email: %s", text)
	}
	if !strings.Contains(text, "No contact details were shared") {
		t.Errorf("message = %s", text)
	}
}

func TestMCPResource_Profiles(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	contents, err := mcpResourceProfiles(deps)(context.Background(), makeReadResourceRequest("backroom://profiles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "backroom://profiles" || tc.MIMEType != "application/json" {
		t.Errorf("resource = %+v", tc)
	}
	list := unmarshalText[ProfileList](t, tc.Text)
	if list.Count != 3 {
		t.Errorf("count = %d, want 3", list.Count)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps := newTestDeps(t)
	seedDirectory(t, deps)

	find := deps.tool("find_collaborators", mcpFindCollaborators(deps))
	list := deps.tool("list_profiles", mcpListProfiles(deps))

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := find(context.Background(), makeCallToolRequest("find_collaborators", map[string]interface{}{"query": "python"})); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := list(context.Background(), makeCallToolRequest("list_profiles", nil)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}
