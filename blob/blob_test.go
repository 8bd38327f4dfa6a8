package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyUsesContentTypeExtension(t *testing.T) {
	key := objectKey("issues/", "image/png")
	assert.True(t, strings.HasPrefix(key, "issues/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	assert.NotEqual(t, objectKey("a/", "image/png"), objectKey("a/", "image/png"))

	key = objectKey("", "application/x-unknown-thing")
	assert.NotContains(t, key, ".")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory("avatars/")
	url, err := m.Store(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://avatars/"))

	data, ok := m.Object(url)
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
}

func TestS3BaseURL(t *testing.T) {
	assert.Equal(t, "https://s3.example.com/photos", S3Config{Endpoint: "https://s3.example.com/", Bucket: "photos"}.baseURL())
	assert.Equal(t, "https://cdn.example.com", S3Config{PublicURL: "https://cdn.example.com/", Bucket: "photos"}.baseURL())
}
