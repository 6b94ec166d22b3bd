package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/config"
	"aiderdesk/model"
)

// Manager owns the configured MCP servers and exposes their tools to agent
// tasks.
type Manager struct {
	mu            sync.RWMutex
	servers       []config.MCPServerConfig
	processes     *ProcessManager
	aggregator    *ToolAggregator
	failedServers map[string]error
}

func NewManager(servers []config.MCPServerConfig) *Manager {
	pm := NewProcessManager()
	return &Manager{
		servers:       servers,
		processes:     pm,
		aggregator:    NewToolAggregator(pm),
		failedServers: make(map[string]error),
	}
}

// Start launches every configured server. A server that fails to start is
// recorded and skipped; the joined errors are returned after all attempts.
func (m *Manager) Start(ctx context.Context) error {
	var errs []error
	for _, srv := range m.servers {
		if err := m.processes.StartServer(ctx, srv); err != nil {
			config.Logger().Warn("mcp server failed to start", "server", srv.ID, "err", err)
			m.mu.Lock()
			m.failedServers[srv.ID] = err
			m.mu.Unlock()
			errs = append(errs, err)
			continue
		}
		m.mu.Lock()
		delete(m.failedServers, srv.ID)
		m.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Attach registers an already started client, e.g. an in-process server.
func (m *Manager) Attach(ctx context.Context, id string, c *client.Client) error {
	return m.processes.Attach(ctx, id, c)
}

// FailedServers returns the servers that could not be started.
func (m *Manager) FailedServers() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.failedServers)
}

// Tools returns the namespaced tools of the enabled servers. An empty list
// enables every running server.
func (m *Manager) Tools(enabledServers []string) []mcptypes.Tool {
	if m == nil {
		return nil
	}
	if len(enabledServers) == 0 {
		enabledServers = m.processes.ServerIDs()
	}
	return m.aggregator.ToolsForServers(enabledServers)
}

// CallTool invokes a namespaced tool and returns the raw CallToolResult as
// JSON output. Server-side tool errors stay inside the result (isError).
func (m *Manager) CallTool(ctx context.Context, toolName string, input json.RawMessage) (model.ToolOutput, error) {
	call := model.ToolCall{Name: toolName, Input: input}

	result, err := m.aggregator.ExecuteTool(ctx, toolName, call.Arguments())
	if err != nil {
		return model.ToolOutput{}, fmt.Errorf("call %s: %w", toolName, err)
	}

	out, err := model.JSONOutputOf(result)
	if err != nil {
		return model.ToolOutput{}, fmt.Errorf("encode %s result: %w", toolName, err)
	}
	return out, nil
}

// Shutdown stops all servers.
func (m *Manager) Shutdown() error {
	return m.processes.Shutdown()
}
