package domain

import (
	"net/mail"
	"strings"
	"time"
)

// PrincipalState is the lifecycle state of a principal. DISABLED is the
// soft-deleted state; records are never physically removed.
type PrincipalState string

const (
	PrincipalEnabled  PrincipalState = "ENABLED"
	PrincipalDisabled PrincipalState = "DISABLED"
)

// Valid reports whether s is a known state.
func (s PrincipalState) Valid() bool {
	return s == PrincipalEnabled || s == PrincipalDisabled
}

// StateFromActive maps the boundary "active" flag onto the canonical state.
func StateFromActive(active bool) PrincipalState {
	if active {
		return PrincipalEnabled
	}
	return PrincipalDisabled
}

// Principal represents a registered user identity.
type Principal struct {
	ID         string
	Name       string
	Email      string
	ExternalID *string // IdP subject identifier; unique when set
	State      PrincipalState
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Cursor returns the keyset position of p in the (name, id) ordering.
func (p Principal) Cursor() PrincipalCursor {
	return PrincipalCursor{Name: p.Name, ID: p.ID}
}

// PrincipalCursor is the last-seen sort key of a keyset scan over principals.
type PrincipalCursor struct {
	Name string
	ID   string
}

// CreatePrincipalRequest holds parameters for creating a new principal.
type CreatePrincipalRequest struct {
	Name       string
	Email      string
	ExternalID *string
}

// Validate checks that the request is well-formed.
func (r *CreatePrincipalRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" {
		return ErrValidation("principal name is required")
	}
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return ErrValidation("email %q is not a valid address", r.Email)
	}
	if r.ExternalID != nil && strings.TrimSpace(*r.ExternalID) == "" {
		r.ExternalID = nil
	}
	return nil
}

// UpdatePrincipalRequest is a partial update. Nil fields are left unchanged.
type UpdatePrincipalRequest struct {
	Name       *string
	Active     *bool
	ExternalID *string
}

// Validate checks that the request is well-formed.
func (r *UpdatePrincipalRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrValidation("principal name cannot be empty")
	}
	if r.ExternalID != nil && strings.TrimSpace(*r.ExternalID) == "" {
		return ErrValidation("external_id cannot be empty")
	}
	return nil
}

// Apply copies the set fields of the patch onto p.
func (r UpdatePrincipalRequest) Apply(p *Principal) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Active != nil {
		p.State = StateFromActive(*r.Active)
	}
	if r.ExternalID != nil {
		ext := *r.ExternalID
		p.ExternalID = &ext
	}
}

// Fields lists the names of the fields the patch sets.
func (r UpdatePrincipalRequest) Fields() []string {
	var out []string
	if r.Name != nil {
		out = append(out, "name")
	}
	if r.Active != nil {
		out = append(out, "active")
	}
	if r.ExternalID != nil {
		out = append(out, "external_id")
	}
	return out
}

// PrincipalFilter selects principals during a filtered listing.
type PrincipalFilter func(Principal) bool

// FilterAll matches every principal.
func FilterAll(Principal) bool { return true }

// FilterEnabled matches principals in the ENABLED state.
func FilterEnabled(p Principal) bool { return p.State == PrincipalEnabled }

// FilterState matches principals in the given state.
func FilterState(s PrincipalState) PrincipalFilter {
	return func(p Principal) bool { return p.State == s }
}

// FilterNameContains matches principals whose name contains s, case-insensitively.
func FilterNameContains(s string) PrincipalFilter {
	needle := strings.ToLower(s)
	return func(p Principal) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}
}

// FilterAnd matches principals accepted by every filter. Nil filters are skipped.
func FilterAnd(filters ...PrincipalFilter) PrincipalFilter {
	return func(p Principal) bool {
		for _, f := range filters {
			if f != nil && !f(p) {
				return false
			}
		}
		return true
	}
}
