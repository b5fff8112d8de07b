package api

import (
	"github.com/aconic-ni/customsclass-r/internal/auth"
	"github.com/aconic-ni/customsclass-r/internal/classifier"
	"github.com/aconic-ni/customsclass-r/internal/history"
	"github.com/aconic-ni/customsclass-r/internal/hscode"
)

// ClassifyRequest is the body of POST /api/classify. The user id comes from
// the authenticated identity, never from the body.
type ClassifyRequest struct {
	Brand       string `json:"brand"`
	Description string `json:"description"`
}

// ClassifyResponse is returned for a successful classification.
type ClassifyResponse struct {
	Result  hscode.ResultData `json:"result"`
	Item    *history.Item     `json:"item,omitempty"`
	Saved   bool              `json:"saved"`
	Warning string            `json:"warning,omitempty"`
}

// HistoryResponse lists the caller's history, newest first.
type HistoryResponse struct {
	User  auth.Identity  `json:"user"`
	Items []history.Item `json:"items"`
}

// ConfigResponse describes the running service to the page.
type ConfigResponse struct {
	Provider             string `json:"provider"`
	AuthMode             string `json:"auth_mode"`
	RequireUser          bool   `json:"require_user"`
	MinDescriptionLength int    `json:"min_description_length"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []classifier.FieldError `json:"fields,omitempty"`
}

// FromOutcome converts a classifier outcome to its wire shape.
func FromOutcome(out classifier.Outcome) ClassifyResponse {
	return ClassifyResponse{
		Result:  out.Result,
		Item:    out.Item,
		Saved:   out.Saved,
		Warning: out.Warning,
	}
}
