package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/mq"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "load request queue commands",
		Aliases: []string{"messagequeue"},
	}

	mqTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list registered queue backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	// 只有 redis/nats 这类共享队列才会被独立的 worker 进程消费.
	mqEnqueueCmd = &cobra.Command{
		Use:   "enqueue <screen-name>...",
		Short: "queue load requests for users without a status record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				for _, name := range args {
					rec, err := svc.Status.Lookup(ctx, name)
					if err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", name, rec.Status, rec.Header)
				}

				return nil
			})
		},
	}
)

// registerMQCommands 注册队列相关命令.
func registerMQCommands() {
	mqCmd.AddCommand(mqTypesCmd, mqEnqueueCmd)
	rootCmd.AddCommand(mqCmd)
}
