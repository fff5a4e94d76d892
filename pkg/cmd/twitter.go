package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage"
)

var (
	twitterCmd = &cobra.Command{
		Use:   "twitter",
		Short: "Twitter API credential and rate limit commands",
	}

	twitterInitCmd = &cobra.Command{
		Use:   "init [app-key] [app-secret]",
		Short: "obtain a bearer token and store it in the kv store",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()
			key, secret := cfg.Twitter.AppKey, cfg.Twitter.AppSecret

			if len(args) == 2 {
				key, secret = args[0], args[1]
			}

			if key == "" || secret == "" {
				return fmt.Errorf("app key and secret are required (args or twitter.app_key/app_secret)")
			}

			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				if err := svc.Twitter.Init(ctx, key, secret); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Bearer token stored.")

				return nil
			})
		},
	}

	twitterLimitsCmd = &cobra.Command{
		Use:     "limits",
		Short:   "print the recorded rate limits",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				limits, err := svc.Twitter.Limits(ctx)
				if err != nil {
					return err
				}

				if len(limits) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rate limits recorded; run `tweetfreq twitter init` first.")
					return nil
				}

				t := table.New().
					Border(lipgloss.RoundedBorder()).
					Headers("RESOURCE", "REMAINING", "LIMIT")

				for _, l := range limits {
					t.Row(l.Resource, humanize.Comma(int64(l.Remaining)), humanize.Comma(int64(l.Limit)))
				}

				if reset, err := svc.Twitter.NextReset(ctx); err == nil && !reset.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "Next reset "+humanize.Time(reset))
				}

				fmt.Fprintln(cmd.OutOrStdout(), t.String())

				return nil
			})
		},
	}
)

// withServices 打开存储并组装服务，fn 返回后关闭.
func withServices(ctx context.Context, fn func(context.Context, *service.Services) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := configs.GetConfig()

	mgr, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	return fn(ctx, service.New(mgr, cfg))
}

// registerTwitterCommands 注册 Twitter 相关命令.
func registerTwitterCommands() {
	twitterCmd.AddCommand(twitterInitCmd)
	twitterCmd.AddCommand(twitterLimitsCmd)

	rootCmd.AddCommand(twitterCmd)
}
