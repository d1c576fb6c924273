// Package mcp provides an MCP (Model Context Protocol) server adapter for policyqa.
// It lets AI assistants query one indexed policy document over stdio.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingDocument is returned when no document path is given.
var ErrMissingDocument = errors.New("mcp: document path is required")
