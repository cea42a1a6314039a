package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// verifyInput is the JSON document the verify command consumes.
type verifyInput struct {
	Name  string        `json:"name,omitempty"`
	Songs []models.Song `json:"songs"`
}

// Verify cross-checks a song list against the catalog and reports matches.
//
// Input is a JSON document with a songs array, read from --input or stdin.
func (r *Runner) Verify(ctx context.Context, cmd *cli.Command) error {
	if !r.config.HasCatalogCredentials() {
		return fmt.Errorf("%w: spotify client credentials", shared.ErrMissingCredentials)
	}

	var reader io.Reader = os.Stdin
	if path := cmd.String("input"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var input verifyInput
	if err := json.NewDecoder(reader).Decode(&input); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(input.Songs) == 0 {
		return fmt.Errorf("%w: songs", shared.ErrMissingArgument)
	}

	market := cmd.String("market")
	if market == "" {
		market = r.config.Catalog.Market
	}

	verified, err := r.verifier.VerifyAll(ctx, input.Songs, market)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	name := input.Name
	if name == "" {
		name = "Verified Playlist"
	}
	playlist, err := models.NewPlaylist(name, input.Songs)
	if err != nil {
		return fmt.Errorf("failed to build playlist: %w", err)
	}
	export := &formatter.PlaylistExport{Playlist: *playlist, Songs: verified}

	switch format := cmd.String("format"); format {
	case "json", "":
		if output := cmd.String("output"); output != "" {
			data, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal export: %w", err)
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return r.writePlainln("%s", ui.OK("Export written to "+output))
		}
		return r.writeJSON(export, true)
	case "csv":
		result, err := formatter.WriteCSVExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		return r.writePlainln("%s", ui.OK("Export written to "+result.SongsFile))
	case "markdown", "md":
		file, err := formatter.WriteMarkdownExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		return r.writePlainln("%s", ui.OK("Export written to "+file))
	case "text":
		file, err := formatter.WriteTextExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		return r.writePlainln("%s", ui.OK("Export written to "+file))
	default:
		return fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}
}

func verifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify songs against the music catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "JSON file with a songs array (defaults to stdin)",
			},
			&cli.StringFlag{
				Name:  "market",
				Usage: "Catalog market to search in",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown, text",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (format dependent)",
			},
		},
		Action: r.Verify,
	}
}
