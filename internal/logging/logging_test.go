package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "WARN", false)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Int("epoch", 3).Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, 3, entry["epoch"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriterEmptyLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "", false)
	require.NoError(t, err)
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "debug", true)
	require.NoError(t, err)
	log.Debug().Str("phase", "fit").Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "phase=")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
