package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/db"
)

var (
	errArchiveOff = errors.New("archive is disabled (archive.enabled=false)")

	reportsLimit int

	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "report archive commands",
	}

	dbTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list registered database drivers",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	dbReportsCmd = &cobra.Command{
		Use:     "reports [screen-name]",
		Short:   "list archived reports, newest first",
		Aliases: []string{"ls"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var user string

			if len(args) == 1 {
				name, err := service.NormalizeName(args[0])
				if err != nil {
					return err
				}

				user = name
			}

			return withArchive(cmd.Context(), func(ctx context.Context, a *service.ArchiveService) error {
				reports, err := a.Recent(ctx, user, reportsLimit)
				if err != nil {
					return err
				}

				t := table.New().
					Border(lipgloss.RoundedBorder()).
					Headers("REPORT", "USER", "TWEETS", "PER DAY", "ARCHIVED")

				for _, r := range reports {
					t.Row(r.ReportID, r.User, humanize.Comma(int64(r.Total)),
						humanize.FormatFloat("#,###.##", r.AvgPerDay), humanize.Time(r.CreatedAt))
				}

				fmt.Fprintln(cmd.OutOrStdout(), t.String())

				return nil
			})
		},
	}

	dbPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "delete expired reports and their snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd.Context(), func(ctx context.Context, a *service.ArchiveService) error {
				n, err := a.Purge(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "purged %s reports\n", humanize.Comma(n))

				return nil
			})
		},
	}
)

func withArchive(ctx context.Context, fn func(context.Context, *service.ArchiveService) error) error {
	return withServices(ctx, func(ctx context.Context, svc *service.Services) error {
		if svc.Archive == nil {
			return errArchiveOff
		}

		return fn(ctx, svc.Archive)
	})
}

// registerDBCommands 注册归档相关命令.
func registerDBCommands() {
	dbReportsCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 0, "max reports to list (default archive.recent_limit)")
	dbCmd.AddCommand(dbTypesCmd, dbReportsCmd, dbPurgeCmd)

	rootCmd.AddCommand(dbCmd)
}
