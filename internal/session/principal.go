package session

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Principal is the authenticated user as returned by the backend and persisted
// in the user slot.
type Principal struct {
	ID    int64  `json:"id" validate:"required,gt=0"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  Role   `json:"role" validate:"required,oneof=admin gestionnaire comptable agent direction lecteur"`
	// PartnerID is the partner institution the principal is affiliated with.
	PartnerID *int64 `json:"emf_id"`
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// normalize clears the affiliation of administrators.
func (p *Principal) normalize() {
	if p.Role == RoleAdmin {
		p.PartnerID = nil
	}
}

// CanAccessPartner reports whether the principal may see resources of partnerID.
// Administrators and principals without affiliation see every partner.
func (p Principal) CanAccessPartner(partnerID int64) bool {
	if p.Role == RoleAdmin || p.PartnerID == nil {
		return true
	}
	return *p.PartnerID == partnerID
}

func (p Principal) same(o Principal) bool {
	if p.ID != o.ID || p.Role != o.Role || p.Name != o.Name || p.Email != o.Email {
		return false
	}
	switch {
	case p.PartnerID == nil && o.PartnerID == nil:
		return true
	case p.PartnerID == nil || o.PartnerID == nil:
		return false
	default:
		return *p.PartnerID == *o.PartnerID
	}
}

// decodePrincipal parses and validates a stored or received principal.
func decodePrincipal(v *validator.Validate, raw []byte) (*Principal, error) {
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	if err := validatePrincipal(v, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func validatePrincipal(v *validator.Validate, p *Principal) error {
	p.normalize()
	if err := v.Struct(p); err != nil {
		return fmt.Errorf("validate principal: %w", err)
	}
	return nil
}
