// Package api exposes the principal registry over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"principal-registry/internal/domain"
	"principal-registry/internal/service/security"
)

// Handler serves the /v1 principal endpoints.
type Handler struct {
	principals *security.PrincipalService
	identity   domain.IdentityProvider
	logger     *slog.Logger
}

// NewHandler creates a Handler. identity resolves the caller for /v1/me.
func NewHandler(principals *security.PrincipalService, identity domain.IdentityProvider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{principals: principals, identity: identity, logger: logger}
}

// Routes registers the /v1 endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/principals", func(r chi.Router) {
		r.Post("/", h.createPrincipal)
		r.Get("/", h.listPrincipals)
		r.Get("/by-email/{email}", h.getPrincipalByEmail)
		r.Get("/{id}", h.getPrincipal)
		r.Patch("/{id}", h.updatePrincipal)
		r.Delete("/{id}", h.deletePrincipal)
		r.Get("/{id}/audit", h.listPrincipalAudit)
	})
	r.Get("/me", h.me)
}

func (h *Handler) createPrincipal(w http.ResponseWriter, r *http.Request) {
	var body CreatePrincipalBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := h.principals.Create(r.Context(), domain.CreatePrincipalRequest{
		Name:       body.Name,
		Email:      body.Email,
		ExternalID: body.ExternalID,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, principalToAPI(*p))
}

func (h *Handler) listPrincipals(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	items, next, err := h.principals.ListPage(r.Context(), page, filter)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	out := make([]Principal, len(items))
	for i, p := range items {
		out[i] = principalToAPI(p)
	}
	writeJSON(w, http.StatusOK, ListPrincipalsResponse{Principals: out, NextPageToken: next})
}

func (h *Handler) getPrincipal(w http.ResponseWriter, r *http.Request) {
	p, err := h.principals.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, principalToAPI(*p))
}

func (h *Handler) getPrincipalByEmail(w http.ResponseWriter, r *http.Request) {
	p, err := h.principals.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, principalToAPI(*p))
}

func (h *Handler) updatePrincipal(w http.ResponseWriter, r *http.Request) {
	var body UpdatePrincipalBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := h.principals.Update(r.Context(), chi.URLParam(r, "id"), domain.UpdatePrincipalRequest{
		Name:       body.Name,
		Active:     body.Active,
		ExternalID: body.ExternalID,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, principalToAPI(*p))
}

func (h *Handler) deletePrincipal(w http.ResponseWriter, r *http.Request) {
	if err := h.principals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPrincipalAudit(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	entries, err := h.principals.ListAudit(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	out := make([]AuditEntry, len(entries))
	for i, e := range entries {
		out[i] = auditEntryToAPI(e)
	}
	writeJSON(w, http.StatusOK, ListAuditResponse{
		Entries:       out,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), len(entries)),
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok, err := h.principals.ResolveCallerID(r.Context(), h.identity)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "no authenticated caller email")
		return
	}
	email, _ := h.identity.CurrentCallerEmail(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{PrincipalID: id, Email: email})
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pageFromQuery extracts a PageRequest from the max_results/page_token params.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	p := domain.PageRequest{PageToken: q.Get("page_token")}
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, domain.ErrValidation("max_results must be a non-negative integer")
		}
		p.MaxResults = n
	}
	return p, nil
}

// filterFromQuery builds the listing predicate from the state and
// name_contains params. With neither set every principal matches.
func filterFromQuery(r *http.Request) (domain.PrincipalFilter, error) {
	q := r.URL.Query()
	var filters []domain.PrincipalFilter
	if raw := q.Get("state"); raw != "" {
		state := domain.PrincipalState(strings.ToUpper(raw))
		if !state.Valid() {
			return nil, domain.ErrValidation("state must be ENABLED or DISABLED")
		}
		filters = append(filters, domain.FilterState(state))
	}
	if s := q.Get("name_contains"); s != "" {
		filters = append(filters, domain.FilterNameContains(s))
	}
	if len(filters) == 0 {
		return domain.FilterAll, nil
	}
	return domain.FilterAnd(filters...), nil
}
