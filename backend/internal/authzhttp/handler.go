// Package authzhttp is the demo HTTP adapter exercising the core: a
// minimal JSON API over service.Facade, plus a RequireAuthorized
// middleware for protecting arbitrary handlers.
package authzhttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/hodei-project/hodei-authz/backend/internal/audit"
	"github.com/hodei-project/hodei-authz/backend/internal/authz"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	"github.com/hodei-project/hodei-authz/backend/internal/service"
)

// Handler bundles the facade with the collaborators the HTTP layer needs.
type Handler struct {
	Facade *service.Facade
	Audit  *audit.Logger
	Logger *log.Logger
}

// AuthorizeRequestBody is the wire shape of POST /v1/authorize. Principal,
// Resource, and Payload are left as raw JSON: the caller-supplied
// AuthorizeFunc decodes them into whatever concrete entity/action types
// its domain registers, since this adapter has no knowledge of any
// specific namespace.
type AuthorizeRequestBody struct {
	ActionName   string          `json:"action"`
	TenantID     string          `json:"tenant_id"`
	Principal    json.RawMessage `json:"principal"`
	Resource     json.RawMessage `json:"resource,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CedarContext json.RawMessage `json:"cedar_context,omitempty"`
}

type authorizeResponseBody struct {
	Decision string `json:"decision"`
}

// AuthorizeFunc turns one decoded request body into a pipeline request.
// The principal/resource/payload projection is necessarily
// domain-specific; a production adapter supplies its own function here.
type AuthorizeFunc func(r *http.Request, body AuthorizeRequestBody) (authz.Request, error)

// Mux builds the demo's net/http handler set.
func (h *Handler) Mux(buildRequest AuthorizeFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/v1/authorize", h.handleAuthorize(buildRequest))
	mux.HandleFunc("/v1/policies", h.handlePolicies)
	mux.HandleFunc("/v1/policies/", h.handlePolicyByID)
	mux.HandleFunc("/v1/schema", h.handleSchema)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"hodei-authz"}`))
}

func (h *Handler) handleAuthorize(buildRequest AuthorizeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var body AuthorizeRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		req, err := buildRequest(r, body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Context.TenantID = body.TenantID
		req.CedarContext = body.CedarContext

		decision, err := h.Facade.Authorize(r.Context(), req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}

		if h.Audit != nil {
			h.Audit.LogDecision(r.Header.Get("X-Request-Id"),
				audit.Principal{}, req.ActionName, "", string(decision), time.Since(start))
		}

		writeJSON(w, http.StatusOK, authorizeResponseBody{Decision: string(decision)})
	}
}

func (h *Handler) handlePolicies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := h.Facade.ListPolicies(r.Context())
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	case http.MethodPost:
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		doc, err := h.Facade.CreatePolicy(r.Context(), body.Content)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePolicyByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/v1/policies/"):]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := h.Facade.GetPolicy(r.Context(), id)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		doc, err := h.Facade.UpdatePolicy(r.Context(), id, body.Content)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := h.Facade.DeletePolicy(r.Context(), id); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Facade.Schema()
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	b, err := doc.MarshalIndent()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// RequireAuthorized is middleware that runs the pipeline before calling
// next, denying with 403 on a DENY decision; a pipeline error is answered
// with the status statusForError picks for it.
func RequireAuthorized(facade *service.Facade, buildRequest func(*http.Request) (authz.Request, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := buildRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		decision, err := facade.Authorize(r.Context(), req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		if decision != authz.Allow {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func statusForError(err error) int {
	var notFound *authzerr.NotFound
	var invalidHRN *authzerr.InvalidHRN
	var parseErr *authzerr.ParseError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalidHRN), errors.As(err, &parseErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
