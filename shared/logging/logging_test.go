package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("gateway", &buf, "debug", "json")

	log.WithField("auction_id", "123").Debug("bid placed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "gateway", line["service"])
	assert.Equal(t, "123", line["auction_id"])
	assert.Equal(t, "bid placed", line["msg"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewWithOutputDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("gateway", &buf, "not-a-level", "text")

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "service=gateway")
}
