package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/agentdeck/internal/render"
	"github.com/diogo/agentdeck/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Start the interactive chat TUI.

Slash commands inside the chat:
  /sessions        browse and load stored sessions
  /new             start a fresh session
  /attach <path>   stage a file for the next question

Type 'exit', 'quit', or press Ctrl+C to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	controller, err := d.newController(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare session: %w", err)
	}

	opts := render.LoadOptionsFromConfig()
	return tui.Run(controller, d.client, opts)
}
