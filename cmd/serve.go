package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/mcp"
	"aiderdesk/server"
	"aiderdesk/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the event gateway and task API",
		Long: `Start the event fan-out gateway. Remote clients connect to /ws and send
{"action":"subscribe-events","eventTypes":[...],"baseDirs":[...]} to receive events.

Tasks are started with POST /api/tasks {"baseDir":...,"prompt":...,"profileId":...},
cancelled with POST /api/tasks/{id}/cancel and removed with DELETE /api/tasks/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gateway := events.NewGateway(nil, cfg.EventQueueSize)
			defer gateway.Close()

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
			srv := server.New(cfg.Listen, gateway).WithTasks(server.TaskOptions{
				Runner:  newTaskRunner(cfg, manager, store, servers, nil),
				Events:  manager,
				Store:   store,
				Profile: cfg.Profile,
			})
			return serve(ctx, cmd, cfg, srv)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, srv *server.Server) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s event server on %s (Ctrl+C to stop)\n", events.DimStyle.Render("aiderdesk"), cfg.Listen)
	return srv.Start(ctx)
}
