package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for one policy document.
type Server struct {
	ports  *Ports
	path   string
	server *mcp.Server
}

// NewServer creates a new MCP server answering questions about the document at path.
// The document must already be indexed.
func NewServer(ports *Ports, path string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if path == "" {
		return nil, ErrMissingDocument
	}

	impl := &mcp.Implementation{
		Name:    "policyqa",
		Version: Version,
	}
	opts := &mcp.ServerOptions{
		Instructions: fmt.Sprintf("Answers questions about the policy document %s. "+
			"Use retrieve to read the most relevant passages and ask for a claims verdict.",
			filepath.Base(path)),
	}

	s := &Server{
		ports:  ports,
		path:   path,
		server: mcp.NewServer(impl, opts),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Path returns the document the server answers for.
func (s *Server) Path() string {
	return s.path
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
