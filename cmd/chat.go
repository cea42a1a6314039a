package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// Chat runs a single conversation turn from the command line.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if message == "" {
		return fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}
	if !r.config.HasModelCredentials() {
		return fmt.Errorf("%w: openai api key", shared.ErrMissingCredentials)
	}

	resp, err := r.orchestrator.Turn(ctx, chat.TurnRequest{
		Message:   message,
		SessionID: cmd.String("session"),
		Model:     cmd.String("model"),
		Market:    r.config.Catalog.Market,
	})
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, cmd.Bool("pretty"))
	}

	r.writePlainln("%s", ui.Title("mixtape"))
	r.writePlainln("%s", resp.Reply)
	if len(resp.Songs) > 0 {
		r.writePlainln("")
		for i, song := range resp.Songs {
			r.writePlainln("%2d. %s", i+1, song.Display())
		}
	}
	r.writePlainln("")
	r.writePlainln("%s", ui.Help(fmt.Sprintf(
		"%s | %d tokens over %d call(s) | $%.6f",
		resp.Model, resp.Usage.TotalTokens, resp.Usage.Phases, resp.Usage.CostUSD,
	)))

	return nil
}

func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send one message to the playlist assistant",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Session id for conversation continuity",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Override the configured model",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the raw turn response as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent JSON output",
			},
		},
		Action: r.Chat,
	}
}
