package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsList()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsDelete(args[0])
	},
}

var sessionsFilesCmd = &cobra.Command{
	Use:   "files <session-id>",
	Short: "List the files uploaded to a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsFiles(args[0])
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsFilesCmd)
}

func runSessionsList() error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := d.client.Sessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "untitled"
		}
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, title, updated)
	}
	return w.Flush()
}

func runSessionsDelete(sessionID string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.client.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s.\n", sessionID)
	return nil
}

func runSessionsFiles(sessionID string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	files, err := d.client.Files(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Printf("No files in session %s.\n", sessionID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tUPLOADED")
	for _, f := range files {
		uploaded := ""
		if !f.UploadedAt.IsZero() {
			uploaded = f.UploadedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, uploaded)
	}
	return w.Flush()
}
