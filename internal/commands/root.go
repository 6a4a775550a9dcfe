// Package commands provides CLI commands for agentdeck.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	backendFlag string
	sessionFlag string
	outputFlag  string
	fileFlags   []string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "agentdeck [prompt]",
	Short: "Terminal client for the multi-agent data analysis backend",
	Long: `agentdeck is a terminal client for a streaming multi-agent backend.
It renders the conversation, live reasoning steps and server-described
UI components (tables, cards, sections) directly in the terminal.

Examples:
  agentdeck                             Start the interactive chat
  agentdeck "Top products by revenue"   Send a single query
  agentdeck -f data.csv "Summarize"     Attach a file to the query
  cat question.md | agentdeck           Read the prompt from stdin
  agentdeck sessions                    List stored sessions
  agentdeck health                      Check backend availability`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("agentdeck %s (built %s)\n", Version, BuildTime)
			return nil
		}

		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runAsk(string(data))
		}

		if len(args) > 0 {
			return runAsk(args[0])
		}

		return runChat()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "Backend base URL (overrides config and environment)")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "Session id to use (default: a fresh session)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the answer to a file")
	rootCmd.Flags().StringArrayVarP(&fileFlags, "file", "f", nil, "Attach a file to the query (repeatable)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(healthCmd)
}
