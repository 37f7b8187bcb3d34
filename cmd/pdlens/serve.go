package main

import (
	"os/signal"
	"syscall"

	"pdlens/adapters/httpapi"
	"pdlens/app"
	"pdlens/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(state *cliState) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve feature naming, categorisation and analysis over HTTP.
Runs are persisted to Postgres when DATABASE_URL is set and kept in memory
otherwise.

Example: pdlens serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = state.cfg.Server.Port
			}
			gin.SetMode(state.cfg.Server.GinMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, closeRepo, err := openRunRepository(ctx, state)
			if err != nil {
				return err
			}
			defer closeRepo()
			if repo == nil {
				state.logger.Info("DATABASE_URL not set, keeping runs in memory")
				repo = testkit.NewInMemoryRunRepository()
			}

			svc := app.NewInterpretationService(
				app.WithLogger(state.logger),
				app.WithRunRepository(repo),
			)
			server := httpapi.NewServer(svc, app.SettingsFromConfig(state.cfg.Analysis), state.logger)
			return server.Run(ctx, ":"+port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from PORT)")
	return cmd
}
