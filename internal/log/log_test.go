package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	testCases := []struct {
		name     string
		level    string
		env      string
		expected zerolog.Level
	}{
		{name: "explicit level", level: "WARN", env: "development", expected: zerolog.WarnLevel},
		{name: "development default", env: "development", expected: zerolog.TraceLevel},
		{name: "production default", env: "production", expected: zerolog.InfoLevel},
		{name: "unknown level", level: "loud", expected: zerolog.InfoLevel},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(envLogLevel, tc.level)
			t.Setenv("APPLICATION_ENV", tc.env)
			assert.Equal(t, tc.expected, levelFromEnv())
		})
	}
}

func TestWriterWithoutFile(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Same(t, buf, writer(buf, ""))

	logger := newLogger(writer(buf, ""), zerolog.InfoLevel)
	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
