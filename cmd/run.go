package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/mcp"
	"aiderdesk/model"
	"aiderdesk/provider"
	"aiderdesk/server"
	"aiderdesk/storage"
	"aiderdesk/task"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dir       string
		profileID string
		withWS    bool
	)

	cmd := &cobra.Command{
		Use:   "run PROMPT",
		Short: "Run one agent task and stream it to the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			baseDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("invalid project directory: %w", err)
			}
			profile, err := cfg.Profile(profileID)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := events.NewTerminalSink(cmd.OutOrStdout(), opts.verbose)
			defer sink.Close()
			gateway := events.NewGateway(sink, cfg.EventQueueSize)
			defer gateway.Close()

			if withWS {
				go func() {
					if err := serve(ctx, cmd, cfg, server.New(cfg.Listen, gateway)); err != nil {
						config.Logger().Error("event server failed", "err", err)
					}
				}()
			}

			store, err := storage.NewTaskStore(cfg.DataDir())
			if err != nil {
				return err
			}
			defer store.Close()

			servers := mcp.NewManager(cfg.MCPServers)
			if err := servers.Start(ctx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), events.ErrorStyle.Render("some MCP servers failed to start: "+err.Error()))
			}
			defer servers.Shutdown()

			manager := events.NewManager(gateway)
			manager.SendProjectStarted(baseDir)

			runner := newTaskRunner(cfg, manager, store, servers, newLineApprover(cmd.InOrStdin()))

			res, err := runner.Run(ctx, baseDir, profile, strings.Join(args, " "))
			if res != nil {
				fmt.Fprintln(cmd.OutOrStdout(), events.DimStyle.Render(fmt.Sprintf("task %s %s after %d iterations", res.TaskID, res.Status, res.Iterations)))
			}
			if err != nil && ctx.Err() != nil {
				// interrupted by the user; the task is recorded as cancelled
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory")
	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "Agent profile id (default from config)")
	cmd.Flags().BoolVar(&withWS, "serve", false, "Also publish events on the websocket server")
	return cmd
}

func newTaskRunner(cfg *config.Config, manager *events.Manager, store *storage.TaskStore, servers *mcp.Manager, approver task.Approver) *task.Runner {
	return task.NewRunner(task.Options{
		Providers: func(p model.AgentProfile) (model.Provider, error) {
			return provider.ForProfile(cfg, p)
		},
		Events:       manager,
		Store:        store,
		MCP:          servers,
		Settings:     &cfg.Settings,
		CacheControl: cfg.CacheControlOptions(),
		Approver:     approver,
	})
}

// lineApprover answers approval questions with lines read from in. The
// question itself is rendered by the terminal sink.
type lineApprover struct {
	lines chan string
}

func newLineApprover(in io.Reader) *lineApprover {
	a := &lineApprover{lines: make(chan string)}
	go func() {
		defer close(a.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			a.lines <- scanner.Text()
		}
	}()
	return a
}

func (a *lineApprover) Ask(ctx context.Context, question events.QuestionData) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-a.lines:
		if !ok {
			return task.AnswerNo, nil
		}
		return parseAnswer(line, question), nil
	}
}

// parseAnswer maps a typed line to one of the question's shortkeys. An empty
// line picks the default answer and anything unrecognised declines.
func parseAnswer(line string, question events.QuestionData) string {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return question.DefaultAnswer
	}
	for _, a := range question.Answers {
		if strings.HasPrefix(line, a.Shortkey) {
			return a.Shortkey
		}
	}
	return task.AnswerNo
}
