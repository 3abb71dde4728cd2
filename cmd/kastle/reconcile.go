package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jvanhook93/Kastle-script/internal/db"
	"github.com/jvanhook93/Kastle-script/internal/kastle/ingest"
	"github.com/jvanhook93/Kastle-script/internal/kastle/reconcile"
	"github.com/jvanhook93/Kastle-script/internal/kastle/report"
	"github.com/jvanhook93/Kastle-script/internal/kastle/service"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store/sqlite"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

type reconcileOptions struct {
	out      string
	asJSON   bool
	columns  string
	dbPath   string
	parallel int
}

func newReconcileCmd(root *rootOptions) *cobra.Command {
	opts := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile FILE...",
		Short: "Reconcile swipe exports and write the summary workbook",
		Long: `Reads one or more CSV/XLSX badge-reader exports, pairs ENTRY and EXIT
swipes into sessions, flags discrepancies and writes an Excel workbook.
Files that cannot be used are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, root, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", report.DefaultOutputName, "output workbook path")
	f.BoolVar(&opts.asJSON, "json", false, "print the batch report as JSON instead of writing a workbook")
	f.StringVar(&opts.columns, "columns", "", "YAML file overriding the header alias table")
	f.StringVar(&opts.dbPath, "db", "", "also archive the run into this sqlite database")
	f.IntVar(&opts.parallel, "parallel", 4, "files processed concurrently")
	return cmd
}

func runReconcile(cmd *cobra.Command, root *rootOptions, opts *reconcileOptions, args []string) error {
	ctx := cmd.Context()

	aliases := ingest.DefaultAliases()
	if opts.columns != "" {
		data, err := os.ReadFile(opts.columns)
		if err != nil {
			return fmt.Errorf("read columns file: %w", err)
		}
		if aliases, err = ingest.LoadAliases(data); err != nil {
			return err
		}
	}

	files := make([]types.FileInput, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, types.FileInput{Name: filepath.Base(p), Data: data})
	}

	var runs store.RunStore
	if opts.dbPath != "" {
		sqlDB, err := db.Open(ctx, db.Config{Path: opts.dbPath})
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		writer := db.NewWorker(sqlDB)
		defer writer.Close()
		runs = sqlite.NewRunStore(sqlDB, writer)
	}

	svc := service.NewBatchService(ingest.NewNormalizer(aliases), runs, nil, root.logger,
		service.BatchConfig{MaxParallelFiles: opts.parallel})

	outPath := opts.out
	rep, err := svc.Process(ctx, filepath.Base(outPath), files)
	var empty *service.BatchEmptyError
	if errors.As(err, &empty) {
		printSkipped(cmd, empty.Skipped)
		return err
	}
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	outPath = filepath.Join(filepath.Dir(outPath), rep.OutputName)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := report.Write(f, rep); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outPath, err)
	}

	printSummary(cmd, rep)
	printSkipped(cmd, rep.Skipped)
	fmt.Fprintf(cmd.OutOrStdout(), "\nwrote %s (%d sessions, %d discrepancies)\n",
		outPath, len(rep.Sessions), len(rep.Discrepancies))
	return nil
}

func printSummary(cmd *cobra.Command, rep *types.BatchReport) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDAYS\tTOTAL\tAVG/DAY")
	for _, p := range rep.People {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Person, p.DaysInOffice,
			reconcile.FormatHHMM(p.TotalMinutes), reconcile.FormatHHMM(p.AverageMinutesPerDay))
	}
	_ = tw.Flush()
}

func printSkipped(cmd *cobra.Command, skipped []types.SkippedFile) {
	for _, sk := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", sk.Filename, sk.Reason)
	}
}
