package correlation

import (
	"context"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeader(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{name: "accepted", value: " req-42:abc ", want: "req-42:abc"},
		{name: "empty", value: "   ", want: ""},
		{name: "illegal characters", value: "abc\ndef", want: ""},
		{name: "too long", value: strings.Repeat("a", maxIDLength+1), want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := FromHeader(context.Background(), tc.value)
			assert.Equal(t, tc.want, ExtractCorrelationID(ctx))
		})
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, generated := EnsureCorrelationID(context.Background())
	_, err := ulid.ParseStrict(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, ExtractCorrelationID(ctx))

	ctx = ContextWithCorrelationID(context.Background(), "upstream")
	_, kept := EnsureCorrelationID(ctx)
	assert.Equal(t, "upstream", kept)
}

func TestExtractCorrelationIDNilContext(t *testing.T) {
	//nolint:staticcheck
	assert.Empty(t, ExtractCorrelationID(nil))
}
