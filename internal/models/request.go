package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate rejects blank queries and fills in the session id.
func (r *GenerateRequest) Validate(defaultSession string) error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		r.SessionID = defaultSession
	}
	return nil
}

// KnowledgeQuery is the body of POST /api/v1/knowledge/search.
type KnowledgeQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate ensures the query is non-empty and bounds the limit to [1, 50].
func (q *KnowledgeQuery) Validate(defaultLimit int) error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > 50 {
		q.Limit = 50
	}
	return nil
}
