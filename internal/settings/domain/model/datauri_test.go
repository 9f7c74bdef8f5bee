package model

import (
	"bytes"
	"testing"

	"product-studio/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURI_RoundTrip(t *testing.T) {
	payload := []byte{'g', 'l', 'T', 'F', 2, 0, 0, 0, 0xff, 0x00, 0x10}
	uri := NewDataURI("model/gltf-binary", payload).String()
	assert.True(t, IsDataURI(uri))
	assert.Equal(t, "data:model/gltf-binary;base64,Z2xURgIAAAD/ABA=", uri)

	parsed, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "model/gltf-binary", parsed.MimeType)
	assert.True(t, bytes.Equal(payload, parsed.Data))
}

func TestDataURI_DefaultMime(t *testing.T) {
	uri := NewDataURI("", []byte("x")).String()
	assert.Equal(t, "data:application/octet-stream;base64,eA==", uri)
}

func TestParseDataURI_Errors(t *testing.T) {
	for _, in := range []string{
		"https://example.com/cube.glb",
		"data:model/gltf-binary;base64",
		"data:text/plain,hello",
		"data:model/gltf-binary;base64,@@@",
	} {
		_, err := ParseDataURI(in)
		assert.ErrorIs(t, err, errors.ErrInvalidDataURI, in)
	}
}
