package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/uwillc/backroom/internal/connect"
	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/profile"
)

const maxBodySize = 1 << 20 // 1MB

// AppDeps holds what the REST and MCP surfaces need.
type AppDeps struct {
	Profiles *profile.Manager
	Connect  *connect.Workflow
	Metrics  *Metrics
	Token    string

	MaxResults int     // default search result count; DefaultMaxResults when zero
	RateLimit  float64 // connection sends per second per client; 0 disables
	RateBurst  int
	TrustProxy bool // take the client address from X-Forwarded-For / X-Real-IP
}

// SendRequest is the body of POST /requests.
type SendRequest struct {
	FromUser string `json:"from_user"`
	ToUser   string `json:"to_user"`
	Message  string `json:"message"`
	Reason   string `json:"reason"`
}

// RespondRequest is the body of POST /requests/{id}/respond.
type RespondRequest struct {
	Accept     bool   `json:"accept"`
	Message    string `json:"message"`
	ShareEmail bool   `json:"share_email"`
}

// NewAppHandler returns the bearer-protected directory API.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/profiles", handleListProfiles(deps))
	r.Post("/profiles", handleRegisterProfile(deps))
	r.Get("/profiles/{id}", handleGetProfile(deps))
	r.Patch("/profiles/{id}", handleUpdateProfile(deps))

	r.Get("/search", handleSearch(deps))
	r.Get("/search/{category}", handleSearchCategory(deps))

	r.With(RateLimit(deps.RateLimit, deps.RateBurst)).Post("/requests", handleSendRequest(deps))
	r.Get("/requests/incoming", handleIncoming(deps))
	r.Get("/requests/sent", handleSent(deps))
	r.Post("/requests/{id}/respond", handleRespond(deps))

	return r
}

// NewRouter assembles the full HTTP surface: unauthenticated health and
// metrics endpoints plus the protected directory API.
func NewRouter(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/health", handleHealth)
	r.Mount("/", NewAppHandler(deps))
	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func handleListProfiles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := deps.Profiles.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileList(profiles))
	}
}

func handleRegisterProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p directory.Profile
		if !decodeBody(w, r, &p) {
			return
		}
		created, err := deps.Profiles.Register(r.Context(), p)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newPublicProfile(created))
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profiles.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPublicProfile(p))
	}
}

func handleUpdateProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u directory.ProfileUpdate
		if !decodeBody(w, r, &u) {
			return
		}
		p, err := deps.Profiles.Update(r.Context(), chi.URLParam(r, "id"), u)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPublicProfile(p))
	}
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit, ok := parseIntParam(w, r, "limit", 0)
		if !ok {
			return
		}
		matches, err := deps.Profiles.Search(r.Context(), query)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		deps.recordSearch(len(matches))
		writeJSON(w, http.StatusOK, newSearchResult(query, matches, clampLimit(limit, deps.MaxResults)))
	}
}

func handleSearchCategory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		value := r.URL.Query().Get("value")
		profiles, err := deps.Profiles.SearchCategory(r.Context(), category, value)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newCategoryResult(category, value, profiles))
	}
}

func handleSendRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.FromUser == "" || req.ToUser == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "from_user and to_user are required")
			return
		}
		res, err := deps.Connect.Send(r.Context(), req.FromUser, req.ToUser, req.Message, req.Reason)
		deps.recordConnect("send", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func handleIncoming(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireQuery(w, r, "user")
		if !ok {
			return
		}
		incoming, err := deps.Connect.CheckIncoming(r.Context(), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(incoming), "requests": incoming})
	}
}

func handleSent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireQuery(w, r, "user")
		if !ok {
			return
		}
		sent, err := deps.Connect.CheckSent(r.Context(), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sent)
	}
}

func handleRespond(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RespondRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := deps.Connect.Respond(r.Context(), chi.URLParam(r, "id"), req.Accept, req.Message, req.ShareEmail)
		deps.recordConnect("respond", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s query parameter is required", name)
		return "", false
	}
	return v, true
}

func parseIntParam(w http.ResponseWriter, r *http.Request, name string, defaultVal int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid %s parameter: %q", name, s)
		return 0, false
	}
	return v, true
}

func (d AppDeps) recordSearch(matches int) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.SearchesTotal.Inc()
	d.Metrics.SearchMatches.Observe(float64(matches))
}

func (d AppDeps) recordConnect(action string, err error) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.ConnectionRequests.WithLabelValues(action, outcome(err)).Inc()
}
