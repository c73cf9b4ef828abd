// Package reqid carries a per-request identifier through contexts.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header request ids are read from and echoed in.
const Header = "X-Request-Id"

type key struct{}

type clientKey struct{}

// NewContext returns a copy of parent carrying a new random request id.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID returns a copy of parent carrying id. The id must be unique among
// requests in flight; ids sent by clients belong in WithClientID.
func WithID(parent context.Context, id string) (context.Context, string) {
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}

// WithClientID returns a copy of parent carrying the request id the client
// supplied. It does not replace the id returned by FromContext.
func WithClientID(parent context.Context, id string) context.Context {
	return context.WithValue(parent, clientKey{}, id)
}

// ClientID extracts the client-supplied request id from ctx.
func ClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientKey{}).(string)
	return id, ok
}

// Reported is the id shown outside the process: the client's id when one was
// supplied, the request id otherwise.
func Reported(ctx context.Context) string {
	if id, ok := ClientID(ctx); ok && id != "" {
		return id
	}
	id, _ := FromContext(ctx)
	return id
}
