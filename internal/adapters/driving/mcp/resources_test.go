package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleDocumentResource(t *testing.T) {
	cache := &mockCacheService{info: domain.CacheInfo{
		Key:      "policy.pdf_cache",
		Dir:      "/home/u/.policyqa/cached_files/policy.pdf_cache",
		Complete: true,
		Passages: 42,
	}}
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Cache: cache}, "/docs/policy.pdf")
	require.NoError(t, err)

	result, err := server.handleDocumentResource(context.Background(), readRequest(documentURI))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, documentURI, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var got domain.CacheInfo
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
	assert.Equal(t, cache.info, got)
}

func TestServer_handleCachesResource(t *testing.T) {
	t.Run("lists caches", func(t *testing.T) {
		cache := &mockCacheService{infos: []domain.CacheInfo{{Key: "a.pdf_cache"}, {Key: "b.pdf_cache"}}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Cache: cache}, "/docs/a.pdf")
		require.NoError(t, err)

		result, err := server.handleCachesResource(context.Background(), readRequest(cachesURI))

		require.NoError(t, err)
		var got []domain.CacheInfo
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Len(t, got, 2)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Cache: &mockCacheService{}}, "/docs/a.pdf")
		require.NoError(t, err)

		result, err := server.handleCachesResource(context.Background(), readRequest(cachesURI))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("list failure", func(t *testing.T) {
		cache := &mockCacheService{err: errors.New("permission denied")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Cache: cache}, "/docs/a.pdf")
		require.NoError(t, err)

		_, err = server.handleCachesResource(context.Background(), readRequest(cachesURI))

		assert.ErrorContains(t, err, "permission denied")
	})
}
