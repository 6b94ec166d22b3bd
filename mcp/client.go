package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/config"
)

const protocolVersion = "2025-06-18"

// dialStdio launches a server command and connects to it over stdio. The
// spawned command is returned so it can be killed if a graceful close hangs.
func dialStdio(ctx context.Context, cfg config.MCPServerConfig) (*client.Client, *exec.Cmd, error) {
	var captured *exec.Cmd

	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		captured = cmd
		return cmd, nil
	}

	c, err := client.NewStdioMCPClientWithOptions(cfg.Command, envList(cfg.Env), cfg.Args, transport.WithCommandFunc(cmdFunc))
	if err != nil {
		return nil, nil, err
	}
	if captured != nil && captured.Process != nil {
		config.Logger().Debug("mcp server started", "server", cfg.ID, "pid", captured.Process.Pid)
	}
	return c, captured, nil
}

// initialize performs the MCP handshake and returns the advertised tools.
func initialize(ctx context.Context, c *client.Client) ([]mcptypes.Tool, error) {
	req := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "aiderdesk",
				Version: "1.0.0",
			},
		},
	}
	if _, err := c.Initialize(ctx, req); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	result, err := c.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

// envList renders env in KEY=VALUE form with a stable order.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
