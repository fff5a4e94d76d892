package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "inspect status records in the kv store",
		Aliases: []string{"keyvalue"},
	}

	kvTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list registered kv backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	kvUsersCmd = &cobra.Command{
		Use:     "users",
		Short:   "list screen names that have a status record",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				keys, err := svc.Store.Keys(ctx, "user.*")
				if err != nil {
					return err
				}

				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), strings.TrimPrefix(k, "user."))
				}

				return nil
			})
		},
	}

	kvStatusCmd = &cobra.Command{
		Use:   "status <screen-name>",
		Short: "print the stored status record without queueing a load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := service.NormalizeName(args[0])
			if err != nil {
				return err
			}

			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				rec, ok, err := svc.Status.Get(ctx, name)
				if err != nil {
					return err
				}

				if !ok {
					return fmt.Errorf("no record for %s", name)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", rec.Status, rec.Header, rec.Message)

				return nil
			})
		},
	}

	kvForgetCmd = &cobra.Command{
		Use:     "forget <screen-name>...",
		Short:   "delete status records so the next lookup reloads them",
		Aliases: []string{"rm"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				for _, name := range args {
					if err := svc.Status.Forget(ctx, name); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	kvCmd.AddCommand(kvTypesCmd, kvUsersCmd, kvStatusCmd, kvForgetCmd)
	rootCmd.AddCommand(kvCmd)
}
