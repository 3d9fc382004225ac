package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		wantLogged  bool
		expectError bool
	}{
		{name: "default level drops debug", level: "", wantLogged: false},
		{name: "debug level", level: "DEBUG", wantLogged: true},
		{name: "invalid level", level: "loud", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Options{Level: tt.level, JSON: true, Writer: &buf})
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger.Debug().Str("repo", "octo/demo").Msg("repo client cache hit")
			assert.Equal(t, tt.wantLogged, buf.Len() > 0)
		})
	}
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{JSON: true, Writer: &buf})
	require.NoError(t, err)

	logger.Info().Int("pr", 7).Msg("triage finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "triage finished", entry["message"])
	assert.Equal(t, float64(7), entry["pr"])
	assert.Contains(t, entry, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf})
	require.NoError(t, err)

	logger.Warn().Msg("retrying after transient error")
	assert.Contains(t, buf.String(), "retrying after transient error")
}
