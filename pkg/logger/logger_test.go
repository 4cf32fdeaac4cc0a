package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Format: FormatJSON, Output: &buf})

	l.WithFields(map[string]interface{}{"bill_id": "BILL-00AB12"}).
		Error(errors.New("boom"), "failed to merge", "merged", true)
	l.Debug("dropped")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "failed to merge", entry["message"])
	assert.Equal(t, "BILL-00AB12", entry["bill_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, true, entry["merged"])
}
