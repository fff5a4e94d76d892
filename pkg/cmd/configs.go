package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

var (
	showSecrets bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the loaded configuration",
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil || v.ConfigFileUsed() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file, using defaults and "+configs.EnvPrefix+"_* env")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), v.ConfigFileUsed())

			return nil
		},
	}

	configShowCmd = &cobra.Command{
		Use:     "show",
		Short:   "print the effective configuration as JSON",
		Aliases: []string{"debug"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *configs.GetConfig()
			if !showSecrets {
				cfg = cfg.Redacted()
			}

			if v := configs.GetViper(); v != nil && debugFlag {
				v.Debug()
			}

			b, err := sonic.ConfigStd.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}
)

// registerConfigsCommands 注册配置相关命令.
func registerConfigsCommands() {
	configShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords and keys unmasked")
	configCmd.AddCommand(configPathCmd, configShowCmd)

	rootCmd.AddCommand(configCmd)
}
