package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://minio.local:9000/gpt/acme/f-1.json", objectURL("https", "minio.local:9000", "gpt", "acme/f-1.json"))
	assert.Equal(t, "http://minio.local/gpt/acme/f-1.json", objectURL("", "minio.local", "gpt", "/acme/f-1.json"))
}

func TestEncodePayload(t *testing.T) {
	var payload any
	require.NoError(t, json.Unmarshal([]byte(`{"choices":[{"text":"<x>"}]}`), &payload))

	b, err := encodePayload(payload)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, payload, any(back))
	assert.Contains(t, string(b), "\n  ")
}
