package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "json", &buf)
	logger.Info().Str("instance_url", "https://x.my.salesforce.com").Msg("authentication successful")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "authentication successful", line["message"])
	assert.Equal(t, "https://x.my.salesforce.com", line["instance_url"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New("loud", "json", &buf)
	assert.Contains(t, buf.String(), "invalid log level")

	buf.Reset()
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "console", &buf)
	logger.Info().Msg("event published")
	out := buf.String()
	assert.Contains(t, out, "event published")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}
