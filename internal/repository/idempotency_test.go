package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strv-go/newsletter-publisher/internal/models"
)

func TestEncodeDecodeHeadersRoundTrip(t *testing.T) {
	headers := []models.HeaderPair{
		{Name: "Location", Value: []byte("/admin/newsletters")},
		{Name: "Set-Cookie", Value: []byte("_flash=published; Max-Age=1; Secure; HttpOnly")},
	}

	encoded, err := encodeHeaders(headers)
	require.NoError(t, err)

	decoded, err := decodeHeaders(encoded)
	require.NoError(t, err)

	assert.Equal(t, headers, decoded)
}

func TestDecodeHeadersEmpty(t *testing.T) {
	decoded, err := decodeHeaders(nil)
	assert.NoError(t, err)
	assert.Nil(t, decoded)
}
