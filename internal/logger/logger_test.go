package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(Config{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Setup(Config{}) })

	Infof("dropped %d", 1)
	Warnf("kept %s", "this")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept this", entry["message"])
}

func TestSetup_Invalid(t *testing.T) {
	assert.Error(t, Setup(Config{Level: "loud"}))
	assert.Error(t, Setup(Config{Format: "xml"}))
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(Config{Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Setup(Config{}) })

	l := With("symbol", "BTCUSDT")
	l.Info().Msg("fetched")
	assert.Contains(t, buf.String(), `"symbol":"BTCUSDT"`)
}
