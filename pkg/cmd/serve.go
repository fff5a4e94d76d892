package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/app"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/log"
)

var (
	noWorker bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP service and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()
			if noWorker {
				cfg.Server.RunWorker = false
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, cfg, true)
			if err != nil {
				return err
			}

			defer func() {
				if err := a.Close(); err != nil {
					log.Logger().Warn().Err(err).Msg("shutdown")
				}
			}()

			return a.Run(ctx)
		},
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "consume user load requests from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, configs.GetConfig(), false)
			if err != nil {
				return err
			}

			defer func() {
				if err := a.Close(); err != nil {
					log.Logger().Warn().Err(err).Msg("shutdown")
				}
			}()

			if err := a.StartWorker(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			return nil
		},
	}
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// registerServeCommands 注册服务端命令.
func registerServeCommands() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not consume load requests in this process")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
}
