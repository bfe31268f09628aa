package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("discover",
			mcp.WithDescription("Broadcast a discovery probe and list the command addresses of trees on the local network"),
			mcp.WithNumber("wait_ms",
				mcp.Description("How long to collect replies in milliseconds (default 2000)"),
			),
		),
		s.handleDiscover,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_pixel",
			mcp.WithDescription("Set one pixel of the tree to a color. Channels are intensities from 0.0 to 1.0."),
			mcp.WithNumber("pixel",
				mcp.Required(),
				mcp.Description("Zero-based pixel index"),
			),
			colorParam("red"),
			colorParam("green"),
			colorParam("blue"),
			addressParam(),
		),
		s.handleSetPixel,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_all",
			mcp.WithDescription("Set every pixel of the tree to one color. Channels are intensities from 0.0 to 1.0."),
			colorParam("red"),
			colorParam("green"),
			colorParam("blue"),
			addressParam(),
		),
		s.handleSetAll,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_off",
			mcp.WithDescription("Turn every pixel of the tree off"),
			addressParam(),
		),
		s.handleTurnOff,
	)
}

func colorParam(name string) mcp.ToolOption {
	return mcp.WithNumber(name,
		mcp.Required(),
		mcp.Description(name+" channel intensity (0.0 to 1.0)"),
	)
}

func addressParam() mcp.ToolOption {
	return mcp.WithString("address",
		mcp.Description("Command address host:port of the tree (default: configured address or first discovered tree)"),
	)
}
