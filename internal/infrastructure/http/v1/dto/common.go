// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// IDResponse is returned by create endpoints.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body written by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items  any `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PageQuery carries limit/offset query parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults fills an unset limit.
func (p *PageQuery) Defaults() {
	if p.Limit == 0 {
		p.Limit = 100
	}
}

func parseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").WithDetail("field", field)
	}
	return v, nil
}

func parseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
