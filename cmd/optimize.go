package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiderdesk/agent"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		profileID string
		index     int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "optimize FILE",
		Short: "Print a saved conversation as it would be sent to the model",
		Long: `Run the message optimization pipeline over a conversation file (a JSON or
YAML list of messages) and print the result. --index selects the user request
that receives reminders; by default the last user message is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			profile, err := cfg.Profile(profileID)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read conversation: %w", err)
			}
			messages, err := decodeConversation(data, formatForPath(args[0]))
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("index") {
				index = lastUserIndex(messages)
			}
			if format == "" {
				format = formatForPath(args[0])
			}

			optimized := agent.OptimizeMessages(profile, index, messages, cfg.CacheControlOptions(), &cfg.Settings)
			return encodeConversation(cmd.OutOrStdout(), optimized, format)
		},
	}

	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "Agent profile id (default from config)")
	cmd.Flags().IntVar(&index, "index", -1, "Index of the user request message")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json or yaml (default: input format)")
	return cmd
}
