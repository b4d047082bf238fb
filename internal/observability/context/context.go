package context

import (
	stdcontext "context"
	"strings"
)

type requestIDKey struct{}

type subjectKey struct{}

// WithRequestID stores the inbound request id.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithSubject tags the context with the leveling subject being evaluated, e.g. "studio:42".
func WithSubject(ctx stdcontext.Context, subject string) stdcontext.Context {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, subjectKey{}, subject)
}

func SubjectFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(subjectKey{}).(string); ok {
		return v
	}
	return ""
}
