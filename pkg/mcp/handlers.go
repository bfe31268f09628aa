package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/treelights/pkg/client"
	"github.com/urmzd/treelights/pkg/device"
)

var errNoTree = errors.New("no tree found on the network")

func (s *Server) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wait := s.opts.DiscoverWait
	if v, ok := request.GetArguments()["wait_ms"]; ok {
		if ms, ok := v.(float64); ok && ms > 0 {
			wait = time.Duration(ms) * time.Millisecond
		}
	}

	trees, err := client.Discover(ctx, s.opts.Broadcast, wait)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %s", err)), nil
	}

	out := DiscoverOutput{Trees: trees, Count: len(trees)}
	if out.Trees == nil {
		out.Trees = []string{}
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetPixel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := requiredIndex(request, "pixel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	color, err := requiredColor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.send(ctx, request, device.SetPixel(index, color))
}

func (s *Server) handleSetAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	color, err := requiredColor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.send(ctx, request, device.SetAll(color))
}

func (s *Server) handleTurnOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.send(ctx, request, device.Off())
}

// send delivers cmd over a fresh connection. Both transport failures and
// tree-side rejections come back as tool errors.
func (s *Server) send(ctx context.Context, request mcp.CallToolRequest, cmd device.Command) (*mcp.CallToolResult, error) {
	addr, err := s.resolveAddress(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := client.Dial(ctx, addr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to connect: %s", err)), nil
	}
	defer func() { _ = c.Close() }()
	if s.opts.Timeout > 0 {
		c.SetTimeout(s.opts.Timeout)
	}

	if err := c.Send(ctx, cmd); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", cmd.Kind, err)), nil
	}

	out := CommandOutput{Address: addr, Command: cmd.String(), Result: "OK"}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) resolveAddress(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	if v, ok := request.GetArguments()["address"].(string); ok && v != "" {
		return v, nil
	}
	if s.opts.Address != "" {
		return s.opts.Address, nil
	}

	trees, err := client.Discover(ctx, s.opts.Broadcast, s.opts.DiscoverWait)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	if len(trees) == 0 {
		return "", errNoTree
	}
	return trees[0], nil
}

// --- helpers ---

func requiredNumber(request mcp.CallToolRequest, key string) (float64, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required parameter %q is missing", key)
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
	return f, nil
}

func requiredIndex(request mcp.CallToolRequest, key string) (uint, error) {
	f, err := requiredNumber(request, key)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %q must be a non-negative integer", key)
	}
	return uint(f), nil
}

func requiredColor(request mcp.CallToolRequest) (device.RGB, error) {
	var c device.RGB
	for i, key := range []string{"red", "green", "blue"} {
		f, err := requiredNumber(request, key)
		if err != nil {
			return c, err
		}
		c[i] = f
	}
	return c, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
