package models

import (
	"strings"

	dErrors "misiones/pkg/domain-errors"
)

type CreateSiteRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Active   *bool  `json:"active,omitempty"`
}

func (r *CreateSiteRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateSiteRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > maxSiteNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}
	if r.Capacity < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacity cannot be negative")
	}
	return nil
}

// IsActive defaults new sites to active.
func (r *CreateSiteRequest) IsActive() bool {
	return r.Active == nil || *r.Active
}

// UpdateSiteRequest carries optional changes; nil fields are left untouched.
type UpdateSiteRequest struct {
	Name     *string `json:"name,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (r *UpdateSiteRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
}

func (r *UpdateSiteRequest) Validate() error {
	if r.Name == nil && r.Capacity == nil && r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of name, capacity or active is required")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if r.Name != nil && len(*r.Name) > maxSiteNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}
	if r.Capacity != nil && *r.Capacity < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacity cannot be negative")
	}
	return nil
}
