// Package mcp exposes a running tree to MCP clients over stdio.
package mcp

import (
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/treelights/pkg/discovery"
)

// DefaultDiscoverWait is how long discovery collects replies.
const DefaultDiscoverWait = 2 * time.Second

// Options configures how the server reaches a tree.
type Options struct {
	// Address is the command address used when a tool call names none. If
	// empty the first tree found by discovery is used.
	Address string

	// Broadcast is the discovery target; empty means the limited broadcast
	// address on the discovery port.
	Broadcast string

	DiscoverWait time.Duration
	Timeout      time.Duration
}

// Server wraps the MCP server with tree control tools
type Server struct {
	mcpServer *server.MCPServer
	opts      Options
}

// NewServer creates a new MCP server for tree control
func NewServer(opts Options) *Server {
	if opts.Broadcast == "" {
		opts.Broadcast = discovery.BroadcastAddress
	}
	if opts.DiscoverWait <= 0 {
		opts.DiscoverWait = DefaultDiscoverWait
	}

	s := &Server{opts: opts}

	s.mcpServer = server.NewMCPServer(
		"treelights",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
