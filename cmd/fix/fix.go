// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package fix

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/stratastor/logger"

	"github.com/stratastor/netfix/config"
	"github.com/stratastor/netfix/pkg/client"
	"github.com/stratastor/netfix/pkg/lifecycle"
	"github.com/stratastor/netfix/pkg/netfix"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

var (
	root      string
	levelName string
	workers   int
	dryRun    bool
	serverURL string
)

func NewFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Fix network configuration under a mounted guest root",
		RunE:  runFix,
	}

	cfg := config.GetConfig()
	cmd.Flags().StringVarP(&root, "root", "r", "", "Mounted guest filesystem root (required)")
	cmd.Flags().StringVarP(&levelName, "level", "l", cfg.Fix.Level, "Fix level: conservative, moderate or aggressive")
	cmd.Flags().IntVarP(&workers, "workers", "w", cfg.Fix.Workers, "Concurrent file workers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", cfg.Fix.DryRun, "Report fixes without writing files")
	cmd.Flags().StringVar(&serverURL, "server", "", "Submit the run to a Netfix server instead of executing locally")
	cmd.MarkFlagRequired("root")
	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	lcfg := config.NewLoggerConfig(config.GetConfig())
	log, err := logger.NewTag(lcfg, "fix")
	if err != nil {
		return err
	}

	level, err := types.ParseFixLevel(levelName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	lifecycle.RegisterContextCanceller(cancel)
	go lifecycle.HandleSignals(ctx)

	opts := netfix.Options{
		Root:         root,
		Level:        level,
		Workers:      workers,
		DryRun:       dryRun,
		BackupSuffix: config.GetConfig().Fix.BackupSuffix,
		Progress: func(done, total int, oc netfix.FileOutcome) {
			log.Debug("file processed", "done", done, "total", total, "path", oc.GuestPath)
		},
	}

	var report *netfix.Report
	if serverURL != "" {
		c := client.New(client.NewConfig(serverURL))
		report, err = c.RunFix(ctx, opts)
	} else {
		report, err = netfix.NewManager(log).Run(ctx, opts)
	}
	if err != nil {
		return err
	}

	printReport(report)

	if report.Stats.FailedFiles > 0 {
		os.Exit(1)
	}
	return nil
}

func printReport(report *netfix.Report) {
	fmt.Printf("Files scanned:  %d\n", report.Stats.TotalFiles)
	fmt.Printf("Files modified: %d\n", report.Stats.ModifiedFiles)
	fmt.Printf("Files rejected: %d\n", report.Stats.RejectedFiles)
	fmt.Printf("Files failed:   %d\n", report.Stats.FailedFiles)
	fmt.Printf("Fixes applied:  %d\n", report.Stats.FixesApplied)
	fmt.Printf("Backups:        %d\n", report.Stats.BackupsCreated)

	if len(report.Renames) > 0 {
		fmt.Println("\nDevice renames:")
		olds := make([]string, 0, len(report.Renames))
		for old := range report.Renames {
			olds = append(olds, old)
		}
		sort.Strings(olds)
		for _, old := range olds {
			fmt.Printf("  %s -> %s\n", old, report.Renames[old])
		}
	}

	for _, file := range report.Files {
		if len(file.AppliedFixes) == 0 && file.Error == "" && len(file.ValidationErrors) == 0 {
			continue
		}
		fmt.Printf("\n%s (%s)\n", file.GuestPath, file.Type)
		for _, fix := range file.AppliedFixes {
			fmt.Printf("  + %s\n", fix)
		}
		for _, verr := range file.ValidationErrors {
			fmt.Printf("  ! rejected: %s\n", verr)
		}
		if file.Error != "" {
			fmt.Printf("  ! error: %s\n", file.Error)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range report.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}
