package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDFromContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	c := AttachRequestIDToContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(c))
}

func TestAttachTraceIdFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(AttachTraceIdFromContext())

	c := AttachRequestIDToContext(context.Background(), "req-2")
	logger.Info().Ctx(c).Msg("hello")

	line := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-2", line[KeyRequestID])
	assert.NotContains(t, line, KeyTraceID)
}
