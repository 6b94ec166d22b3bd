package mcp

import (
	"os/exec"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ServerProcess is a connected MCP server and the tools it advertised at
// startup.
type ServerProcess struct {
	ID      string
	Command string
	Args    []string
	Process *exec.Cmd // nil for in-process servers
	Client  *client.Client
	Tools   []mcptypes.Tool
	Running bool
}
