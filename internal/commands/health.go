package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth()
	},
}

func runHealth() error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.client.Health(ctx); err != nil {
		return fmt.Errorf("backend at %s is not healthy: %w", d.client.BaseURL(), err)
	}

	fmt.Printf("Backend at %s is healthy.\n", d.client.BaseURL())
	return nil
}
