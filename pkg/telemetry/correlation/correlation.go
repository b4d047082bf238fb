package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// maxIDLength caps caller-supplied identifiers before they reach logs and spans.
const maxIDLength = 128

type correlationKey struct{}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// FromHeader accepts an inbound correlation ID. Values that are empty, too long
// or carry characters outside [A-Za-z0-9._:-] are discarded.
func FromHeader(ctx context.Context, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxIDLength {
		return ctx
	}
	for _, r := range value {
		if !allowed(r) {
			return ctx
		}
	}
	return ContextWithCorrelationID(ctx, value)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating a ULID when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}
