package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	treemcp "github.com/urmzd/treelights/pkg/mcp"
)

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	addr := flag.String("addr", "", "Command address host:port of the tree (default: discover)")
	broadcast := flag.String("broadcast", "", "Discovery target (default: 255.255.255.255:65435)")
	wait := flag.Duration("discover-wait", treemcp.DefaultDiscoverWait, "How long discovery collects replies")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-command reply timeout")
	flag.Parse()

	mcpServer := treemcp.NewServer(treemcp.Options{
		Address:      *addr,
		Broadcast:    *broadcast,
		DiscoverWait: *wait,
		Timeout:      *timeout,
	})

	log.Info().Str("addr", *addr).Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
