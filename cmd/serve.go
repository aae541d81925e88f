package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/smartreview/internal/api"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"api"},
		Usage:   "Start the SmartReview API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides server.port)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	app, err := loadApp(c)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			app.Logger.Warn().Err(err).Msg("Shutdown was not clean")
		}
	}()

	port := app.Config.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	server := api.NewServer(port, api.Deps{
		Engine:         app.Engine,
		Feedback:       app.Feedback,
		CacheStats:     app.Reviews.CacheStats,
		Logger:         app.Logger,
		RequestTimeout: app.Config.Server.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Start(ctx)
}
