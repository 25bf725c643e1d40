package api

import (
	"time"

	"principal-registry/internal/domain"
)

// Principal is the wire form of domain.Principal.
type Principal struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	ExternalID *string    `json:"external_id,omitempty"`
	State      string     `json:"state"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// CreatePrincipalBody is the request body of POST /v1/principals.
type CreatePrincipalBody struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ExternalID *string `json:"external_id,omitempty"`
}

// UpdatePrincipalBody is the request body of PATCH /v1/principals/{id}.
// Absent fields are left unchanged.
type UpdatePrincipalBody struct {
	Name       *string `json:"name,omitempty"`
	Active     *bool   `json:"active,omitempty"`
	ExternalID *string `json:"external_id,omitempty"`
}

// ListPrincipalsResponse is one page of principals.
type ListPrincipalsResponse struct {
	Principals    []Principal `json:"principals"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// AuditEntry is the wire form of domain.AuditEntry.
type AuditEntry struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`
	Detail      *string   `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListAuditResponse is one page of a principal's audit trail.
type ListAuditResponse struct {
	Entries       []AuditEntry `json:"entries"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// MeResponse identifies the authenticated caller's principal.
type MeResponse struct {
	PrincipalID string `json:"principal_id"`
	Email       string `json:"email"`
}

func principalToAPI(p domain.Principal) Principal {
	return Principal{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		ExternalID: p.ExternalID,
		State:      string(p.State),
		Active:     p.State == domain.PrincipalEnabled,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func auditEntryToAPI(e domain.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:          e.ID,
		PrincipalID: e.PrincipalID,
		Actor:       e.Actor,
		Action:      e.Action,
		Detail:      e.Detail,
		CreatedAt:   e.CreatedAt,
	}
}
