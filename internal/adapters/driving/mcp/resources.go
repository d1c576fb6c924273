package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "policyqa://"

	documentURI = uriScheme + "document"
	cachesURI   = uriScheme + "caches"
)

// registerResources registers all resource handlers with the MCP server.
// Nothing is registered without a cache service.
func (s *Server) registerResources() {
	if s.ports.Cache == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         documentURI,
		Name:        "document",
		Description: "Cache status of the policy document being served",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)

	s.server.AddResource(&mcp.Resource{
		URI:         cachesURI,
		Name:        "caches",
		Description: "Every indexed document in the cache directory",
		MIMEType:    "application/json",
	}, s.handleCachesResource)
}

// handleDocumentResource describes the served document's cache entry.
func (s *Server) handleDocumentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.Cache.Status(s.path))
}

// handleCachesResource lists every cache entry.
func (s *Server) handleCachesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos, err := s.ports.Cache.List()
	if err != nil {
		return nil, fmt.Errorf("listing caches: %w", err)
	}
	if infos == nil {
		return jsonResource(req.Params.URI, []any{})
	}
	return jsonResource(req.Params.URI, infos)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
