package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// Serve starts the HTTP API for the playlist service.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if !r.config.HasModelCredentials() {
		return fmt.Errorf("%w: openai api key", shared.ErrMissingCredentials)
	}
	if !r.config.HasCatalogCredentials() {
		r.logger.Warn("catalog credentials missing, verification and search will degrade")
	}

	sessions, threads, closeStores, err := r.openStores()
	if err != nil {
		return err
	}
	defer closeStores()

	orchestrator := r.buildOrchestrator(threads)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger), server.RequireJSON())

	oauthConfig := server.NewOAuthConfig(
		r.config.Credentials.Spotify.ClientID,
		r.config.Credentials.Spotify.ClientSecret,
		r.config.Credentials.Spotify.RedirectURI,
	)
	router.Handler(server.NewAuthHandler(oauthConfig, r.catalog, sessions, r.logger))
	router.Handler(server.NewAPI(server.APIOpts{
		Chat:     orchestrator,
		Verifier: r.verifier,
		Catalog:  r.catalog,
		Sessions: sessions,
		Market:   r.config.Catalog.Market,
		Logger:   r.logger,
	}))

	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	r.writePlainln("%s", ui.Title("mixtape server"))
	r.writePlainln("Listening on %s", addr)
	r.writePlainln("%s", ui.Help("POST /api/chat, /api/verify, /api/search, /api/upload; GET /auth/login"))

	httpServer := &http.Server{Addr: addr, Handler: router}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist service HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to bind",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
			},
		},
		Action: r.Serve,
	}
}
