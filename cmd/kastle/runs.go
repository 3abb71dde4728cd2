package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvanhook93/Kastle-script/internal/db"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store/sqlite"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived reconciliation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlDB, err := db.Open(ctx, db.Config{Path: dbPath})
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			writer := db.NewWorker(sqlDB)
			defer writer.Close()

			runs, err := sqlite.NewRunStore(sqlDB, writer).ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tOUTPUT\tFILES\tSKIPPED\tSESSIONS\tDISCREPANCIES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.OutputName,
					r.FilesTotal, r.FilesSkipped, r.SessionCount, r.DiscrepancyCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/kastle.db", "sqlite database written by kastle-server")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")
	return cmd
}
