package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/agentdeck/internal/api"
	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
	"github.com/diogo/agentdeck/internal/render"
	"github.com/diogo/agentdeck/internal/stream"
	"github.com/diogo/agentdeck/internal/transcript"
	"github.com/diogo/agentdeck/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a single question and print the answer",
	Long: `Send one question to the backend and print the streamed answer.

Reasoning steps stream to stderr while the backend works; the final
answer goes to stdout. When stdout is a terminal the answer renders as
markdown, otherwise it is printed raw for piping.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(args[0])
	},
}

func init() {
	askCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the answer to a file")
	askCmd.Flags().StringArrayVarP(&fileFlags, "file", "f", nil, "Attach a file to the query (repeatable)")
}

func runAsk(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return apierrors.ErrEmptyInput
	}

	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	files := make([]*api.Attachment, 0, len(fileFlags))
	for _, path := range fileFlags {
		file, err := api.AttachmentFromFile(path)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	sessionID := sessionFlag
	if sessionID == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sessionID, err = d.client.NextSessionID(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	idle := 90 * time.Second
	if d.cfg.StreamIdleTimeout > 0 {
		idle = time.Duration(d.cfg.StreamIdleTimeout) * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, err := d.client.Submit(ctx, prompt, sessionID, files)
	if err != nil {
		return err
	}
	defer body.Close()

	watchdog := time.AfterFunc(idle, cancel)
	defer watchdog.Stop()

	var content strings.Builder
	var chartSeen bool
	var mounted []models.UIEvent
	decoder := stream.NewDecoder(body, stream.WithLogger(d.logger))
	for {
		ev, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return fmt.Errorf("stream ended abnormally: %w", err)
		}
		watchdog.Reset(idle)

		if ev.IsContent() {
			content.WriteString(ev.Content)
			if len(ev.Option) > 0 {
				chartSeen = true
			}
			if len(ev.Component) > 0 {
				mounted = transcript.Merge(mounted, ev.Component)
			}
			continue
		}

		step := models.IconForKey(ev.Icon).Glyph() + " " + ev.Content
		if ev.SearchQuery != "" {
			step += " (" + ev.SearchQuery + ")"
		}
		fmt.Fprintln(os.Stderr, step)
	}

	answer := content.String()

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(answer), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "answer saved to %s\n", outputFlag)
		return nil
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || width <= 0 {
			width = 80
		}
		rendered, err := render.Markdown(answer, render.LoadOptionsFromConfigWithWidth(width))
		if err == nil {
			answer = rendered
		}
		fmt.Print(answer)
		if blocks := tui.RenderComponents(mounted, width); blocks != "" {
			fmt.Println(blocks)
		}
	} else {
		fmt.Println(answer)
	}

	if chartSeen {
		fmt.Fprintln(os.Stderr, "chart data received (open the web dashboard to plot it)")
	}
	return nil
}
