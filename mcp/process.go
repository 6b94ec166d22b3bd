package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/config"
)

const closeTimeout = time.Second

// ProcessManager tracks connected MCP servers by id.
type ProcessManager struct {
	processes map[string]*ServerProcess
	mu        sync.RWMutex
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		processes: make(map[string]*ServerProcess),
	}
}

// StartServer launches the configured command and registers it.
func (pm *ProcessManager) StartServer(ctx context.Context, cfg config.MCPServerConfig) error {
	if pm.isRunning(cfg.ID) {
		return nil
	}

	c, cmd, err := dialStdio(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start mcp server %s: %w", cfg.ID, err)
	}

	proc := &ServerProcess{ID: cfg.ID, Command: cfg.Command, Args: cfg.Args, Process: cmd, Client: c}
	if err := pm.register(ctx, proc); err != nil {
		pm.closeProcess(proc)
		return err
	}
	return nil
}

// Attach registers an already started client under id.
func (pm *ProcessManager) Attach(ctx context.Context, id string, c *client.Client) error {
	if pm.isRunning(id) {
		return fmt.Errorf("mcp server %s already running", id)
	}
	return pm.register(ctx, &ServerProcess{ID: id, Client: c})
}

func (pm *ProcessManager) register(ctx context.Context, proc *ServerProcess) error {
	tools, err := initialize(ctx, proc.Client)
	if err != nil {
		return fmt.Errorf("failed to initialize mcp server %s: %w", proc.ID, err)
	}
	proc.Tools = tools
	proc.Running = true

	pm.mu.Lock()
	pm.processes[proc.ID] = proc
	pm.mu.Unlock()

	config.Logger().Debug("mcp server ready", "server", proc.ID, "tools", len(tools))
	return nil
}

func (pm *ProcessManager) isRunning(id string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	proc, ok := pm.processes[id]
	return ok && proc.Running
}

// StopServer closes the client and kills the process if close hangs.
func (pm *ProcessManager) StopServer(id string) error {
	pm.mu.Lock()
	proc, exists := pm.processes[id]
	if !exists {
		pm.mu.Unlock()
		return fmt.Errorf("mcp server %s not found", id)
	}
	proc.Running = false
	delete(pm.processes, id)
	pm.mu.Unlock()

	pm.closeProcess(proc)
	return nil
}

func (pm *ProcessManager) closeProcess(proc *ServerProcess) {
	closed := false
	if proc.Client != nil {
		done := make(chan error, 1)
		go func() {
			done <- proc.Client.Close()
		}()

		select {
		case err := <-done:
			if err != nil {
				config.Logger().Debug("mcp client close failed", "server", proc.ID, "err", err)
			} else {
				closed = true
			}
		case <-time.After(closeTimeout):
			config.Logger().Debug("mcp client close timed out", "server", proc.ID)
		}
	}

	if !closed && proc.Process != nil && proc.Process.Process != nil {
		if err := proc.Process.Process.Kill(); err != nil {
			config.Logger().Debug("mcp server kill failed", "server", proc.ID, "err", err)
		}
	}
}

func (pm *ProcessManager) GetClient(id string) (*client.Client, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.processes[id]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("mcp server %s not running", id)
	}
	return proc.Client, nil
}

func (pm *ProcessManager) GetTools(id string) ([]mcptypes.Tool, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.processes[id]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("mcp server %s not running", id)
	}
	return proc.Tools, nil
}

// ServerIDs returns the ids of all running servers.
func (pm *ProcessManager) ServerIDs() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	ids := make([]string, 0, len(pm.processes))
	for id, proc := range pm.processes {
		if proc.Running {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown stops all servers in parallel.
func (pm *ProcessManager) Shutdown() error {
	pm.mu.RLock()
	ids := make([]string, 0, len(pm.processes))
	for id := range pm.processes {
		ids = append(ids, id)
	}
	pm.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := pm.StopServer(id); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}
