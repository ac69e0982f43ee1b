package frontend

import (
	"google.golang.org/genproto/googleapis/rpc/code"

	"github.com/google/ecclesia-mmaster/internal/resource"
)

// Empty stands in for google.protobuf.Empty as the Enumerate<R> request.
type Empty struct{}

// EnumerateResponse is the wire shape of every Enumerate<R>Response: exactly
// one id field.
type EnumerateResponse struct {
	ID resource.Identifier `json:"id"`
}

// QueryRequest is the wire shape of every Query<R>Request.
type QueryRequest struct {
	ID        resource.Identifier `json:"id"`
	FieldMask []string            `json:"field_mask"`
}

// QueryResponse is the wire shape of every Query<R>Response.
type QueryResponse struct {
	ID     resource.Identifier `json:"id"`
	Status code.Code           `json:"status"`
	Fields map[string]any      `json:"fields,omitempty"`
}

// MutateRequest is the wire shape of every Mutate<R><Verb>Request.
type MutateRequest struct {
	ID resource.Identifier `json:"id"`
}

// MutateResponse is the wire shape of every Mutate<R><Verb>Response. Per
// "the response does not echo the id" — it carries nothing.
type MutateResponse struct{}
