package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"aiderdesk/events"
	"aiderdesk/storage"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect stored tasks",
	}

	var dir string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *storage.TaskStore) error {
				baseDir, err := absDir(dir)
				if err != nil {
					return err
				}
				tasks, err := store.ListTasks(baseDir)
				if err != nil {
					return err
				}
				printTasks(cmd.OutOrStdout(), tasks)
				return nil
			})
		},
	}
	list.Flags().StringVarP(&dir, "dir", "d", "", "Only tasks of this project directory")

	var format string
	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print the message history of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *storage.TaskStore) error {
				t, err := store.GetTask(args[0])
				if err != nil {
					return err
				}
				messages, err := store.Messages(t.ID)
				if err != nil {
					return err
				}
				if format == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", headerStyle.Render(t.Name), idStyle.Render(t.ID), statusStyle.Render(string(t.Status)))
					format = formatYAML
				}
				return encodeConversation(cmd.OutOrStdout(), messages, format)
			})
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "", "Output format: json or yaml")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *storage.TaskStore) error {
				t, err := store.GetTask(args[0])
				if err != nil {
					return err
				}
				if err := store.DeleteTask(t.ID); err != nil {
					return err
				}

				sink := events.NewTerminalSink(cmd.OutOrStdout(), opts.verbose)
				gateway := events.NewGateway(sink, 1)
				events.NewManager(gateway).SendTaskDeleted(t.EventData())
				gateway.Close()
				sink.Close()
				return nil
			})
		},
	}

	var searchDir string
	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find messages containing QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *storage.TaskStore) error {
				baseDir, err := absDir(searchDir)
				if err != nil {
					return err
				}
				matches, err := storage.NewSearchIndex(store).Search(baseDir, args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, m := range matches {
					fmt.Fprintf(w, "%s\t#%d\t%s\t%s\n", idStyle.Render(m.TaskID), m.MessageIndex, m.Role, m.Preview)
				}
				return w.Flush()
			})
		},
	}
	search.Flags().StringVarP(&searchDir, "dir", "d", "", "Only tasks of this project directory")

	cmd.AddCommand(list, show, del, search)
	return cmd
}

func withStore(opts *rootOptions, fn func(*storage.TaskStore) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	store, err := storage.NewTaskStore(cfg.DataDir())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func absDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid project directory: %w", err)
	}
	return abs, nil
}

func printTasks(w io.Writer, tasks []storage.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("ID")+"\t"+headerStyle.Render("STATUS")+"\t"+headerStyle.Render("MESSAGES")+"\t"+headerStyle.Render("UPDATED")+"\t"+headerStyle.Render("NAME"))
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			idStyle.Render(t.ID), statusStyle.Render(string(t.Status)), t.MessageCount,
			t.UpdatedAt.Format(time.DateTime), t.Name)
	}
	tw.Flush()
}
