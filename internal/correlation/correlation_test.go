package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDLengthAndUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	assert.NotEqual(t, a, b)
}

func TestWithIDRoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "abcd1234")
	id, ok := ID(ctx)
	require.True(t, ok)
	assert.Equal(t, "abcd1234", id)

	_, ok = ID(context.Background())
	assert.False(t, ok)
}

func TestHandlerInjectsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithID(context.Background(), "deadbeef")
	logger.InfoContext(ctx, "hello")
	assert.Contains(t, buf.String(), "correlation_id=deadbeef")

	buf.Reset()
	logger.Info("no context id")
	assert.NotContains(t, buf.String(), "correlation_id")
}
