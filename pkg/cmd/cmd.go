// Package cmd 提供 tweetfreq 命令行：服务端、任务消费者、报告客户端与运维子命令.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/app"
	"github.com/yeisme/tweetfreq/pkg/configs"
)

var (
	configPath string
	debugFlag  bool

	rootCmd = &cobra.Command{
		Use:           "tweetfreq",
		Short:         "Tweet frequency statistics service and client",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Bootstrap(configPath)
			if err != nil {
				return err
			}

			if debugFlag {
				cfg.Server.Debug = true
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug mode")

	registerServeCommands()
	registerReportCommands()
	registerTwitterCommands()
	registerConfigsCommands()
	registerKVCommands()
	registerMQCommands()
	registerDBCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
