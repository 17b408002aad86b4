// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package netfix orchestrates a fix run over a mounted guest filesystem:
// discover, build topology, plan renames, then fix, validate and apply each
// file, and summarize.
package netfix

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/stratastor/logger"

	"github.com/stratastor/netfix/pkg/errors"
	"github.com/stratastor/netfix/pkg/netfix/backends"
	"github.com/stratastor/netfix/pkg/netfix/discovery"
	"github.com/stratastor/netfix/pkg/netfix/fsops"
	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
	"github.com/stratastor/netfix/pkg/netfix/validate"
)

// ProgressFunc observes per-file completion during a run. done counts the
// files finished so far out of total. Calls are serialized; the callback
// never runs concurrently with itself.
type ProgressFunc func(done, total int, outcome FileOutcome)

// Options selects how a run behaves.
type Options struct {
	Root         string         `json:"root"`
	Level        types.FixLevel `json:"level"`
	Workers      int            `json:"workers"`
	DryRun       bool           `json:"dry_run"`
	BackupSuffix string         `json:"backup_suffix"`

	// Progress, when set, is invoked after each file is processed.
	Progress ProgressFunc `json:"-"`
}

// FileOutcome is the per-file slice of a report.
type FileOutcome struct {
	GuestPath        string           `json:"guest_path"`
	Type             types.ConfigType `json:"type"`
	AppliedFixes     []string         `json:"applied_fixes,omitempty"`
	ValidationErrors []string         `json:"validation_errors,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	BackupPath       string           `json:"backup_path,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Stats aggregates a run. PerDialect counts modified files per dialect, not
// discovered ones.
type Stats struct {
	TotalFiles     int                      `json:"total_files"`
	ModifiedFiles  int                      `json:"modified_files"`
	RejectedFiles  int                      `json:"rejected_files"`
	FailedFiles    int                      `json:"failed_files"`
	FixesApplied   int                      `json:"fixes_applied"`
	BackupsCreated int                      `json:"backups_created"`
	PerDialect     map[types.ConfigType]int `json:"per_dialect"`
}

// Report is the result of one run.
type Report struct {
	Options          Options       `json:"options"`
	Stats            Stats         `json:"stats"`
	Files            []FileOutcome `json:"files"`
	Renames          rename.Map    `json:"renames,omitempty"`
	TopologyNodes    int           `json:"topology_nodes"`
	TopologyEdges    int           `json:"topology_edges"`
	TopologyWarnings int           `json:"topology_warnings"`
	Warnings         []string      `json:"warnings,omitempty"`
	Recommendations  []string      `json:"recommendations,omitempty"`
}

// Manager runs fix pipelines. It is safe for concurrent use; all run state
// lives in the per-run context.
type Manager struct {
	log logger.Logger
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{log: log}
}

// Run executes the full pipeline against opts.Root.
func (m *Manager) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = fsops.DefaultBackupSuffix
	}
	if info, err := os.Stat(opts.Root); err != nil || !info.IsDir() {
		return nil, errors.New(errors.DiscoveryRootNotFound, opts.Root)
	}

	run := types.NewRunContext(m.log)

	records, err := discovery.Discover(opts.Root, opts.BackupSuffix, run)
	if err != nil {
		return nil, err
	}
	m.log.Info("discovery complete", "root", opts.Root, "files", len(records))

	topo := topology.Build(records, run.Logger)
	plan := rename.ComputePlan(topo, opts.Level)

	report := &Report{
		Options:          opts,
		Stats:            Stats{PerDialect: map[types.ConfigType]int{}},
		Renames:          plan.Renames,
		TopologyNodes:    len(topo.Nodes()),
		TopologyEdges:    len(topo.Edges()),
		TopologyWarnings: len(topo.Warnings()),
	}
	report.Warnings = append(report.Warnings, topo.Warnings()...)
	report.Warnings = append(report.Warnings, plan.Warnings...)

	outcomes := m.fixAll(ctx, run, records, topo, plan.Renames, opts)

	// Renames are folded into the graph only after every file was fixed
	// against the original names.
	if len(plan.Renames) > 0 {
		topo.ApplyRenames(plan.Renames)
	}

	for _, oc := range outcomes {
		report.Files = append(report.Files, oc)
		report.Stats.TotalFiles++
		switch {
		case oc.Error != "":
			report.Stats.FailedFiles++
		case len(oc.ValidationErrors) > 0:
			report.Stats.RejectedFiles++
		case len(oc.AppliedFixes) > 0:
			report.Stats.ModifiedFiles++
			report.Stats.FixesApplied += len(oc.AppliedFixes)
			report.Stats.PerDialect[oc.Type]++
		}
		if oc.BackupPath != "" {
			report.Stats.BackupsCreated++
		}
	}
	report.Recommendations = recommendations(report, opts)

	m.log.Info("run complete",
		"files", report.Stats.TotalFiles,
		"modified", report.Stats.ModifiedFiles,
		"rejected", report.Stats.RejectedFiles,
		"failed", report.Stats.FailedFiles,
		"fixes", report.Stats.FixesApplied,
		"dry_run", opts.DryRun)
	return report, nil
}

// fixAll fans records out to a bounded worker pool. Output order matches
// input order regardless of scheduling.
func (m *Manager) fixAll(ctx context.Context, run *types.RunContext,
	records []*types.ConfigRecord, topo *topology.Graph, renames rename.Map,
	opts Options,
) []FileOutcome {
	outcomes := make([]FileOutcome, len(records))
	jobs := make(chan int)
	var wg sync.WaitGroup

	// Progress is reported from the workers but serialized, so callers get
	// a consistent done counter without locking on their side.
	var progressMu sync.Mutex
	done := 0
	notify := func(oc FileOutcome) {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		opts.Progress(done, len(records), oc)
	}

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = m.fixOne(run, records[idx], topo, renames, opts)
				notify(outcomes[idx])
			}
		}()
	}

	for i := range records {
		select {
		case <-ctx.Done():
			outcomes[i] = FileOutcome{
				GuestPath: records[i].GuestPath,
				Type:      records[i].Type,
				Error:     ctx.Err().Error(),
			}
			notify(outcomes[i])
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// fixOne fixes, validates and applies a single record. A panic in a backend
// fails only this file.
func (m *Manager) fixOne(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, opts Options,
) (oc FileOutcome) {
	oc = FileOutcome{GuestPath: rec.GuestPath, Type: rec.Type}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("fixer panicked",
				"path", rec.GuestPath, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			oc.Error = errors.New(errors.FixPanic, fmt.Sprint(r)).Error()
		}
	}()

	fixer, ok := backends.ForType(rec.Type)
	if !ok {
		oc.Error = errors.New(errors.FixBackendMissing, string(rec.Type)).Error()
		return oc
	}

	res, err := fixer.Fix(run, rec, topo, renames, opts.Level)
	if err != nil {
		oc.Error = err.Error()
		return oc
	}
	oc.Warnings = res.Warnings
	if !res.Changed() {
		return oc
	}

	if verrs := validate.Check(rec, res.NewContent); len(verrs) > 0 {
		oc.ValidationErrors = verrs
		m.log.Warn("fix rejected by validation",
			"path", rec.GuestPath, "errors", fmt.Sprint(verrs))
		return oc
	}
	oc.AppliedFixes = res.AppliedFixes

	if opts.DryRun {
		return oc
	}

	if err := fsops.VerifyHash(rec.Path, rec.Hash); err != nil {
		oc.Error = err.Error()
		return oc
	}
	backup, err := fsops.CreateBackup(rec.Path, opts.BackupSuffix)
	if err != nil {
		oc.Error = err.Error()
		return oc
	}
	oc.BackupPath = backup

	mode := os.FileMode(rec.Mode)
	if err := fsops.WriteWithMode(rec.Path, res.NewContent, mode, rec.Type); err != nil {
		if rerr := fsops.RestoreFromBackup(backup, rec.Path); rerr != nil {
			m.log.Error("rollback failed", "path", rec.GuestPath, "error", rerr)
		} else {
			oc.BackupPath = ""
		}
		oc.Error = err.Error()
		oc.AppliedFixes = nil
		return oc
	}
	m.log.Debug("fixes applied",
		"path", rec.GuestPath, "fixes", len(oc.AppliedFixes), "backup", backup)
	return oc
}

func recommendations(report *Report, opts Options) []string {
	var recs []string
	if opts.DryRun && report.Stats.ModifiedFiles > 0 {
		recs = append(recs, "dry run: re-run without --dry-run to write the fixes")
	}
	if report.Stats.RejectedFiles > 0 {
		recs = append(recs, "some fixes were rejected by validation; inspect the listed files by hand")
	}
	if opts.Level.AtLeast(types.LevelAggressive) && len(report.Renames) > 0 {
		recs = append(recs, "device renames were applied; regenerate any initramfs or udev rules that pin interface names")
	}
	if !opts.Level.AtLeast(types.LevelModerate) {
		recs = append(recs, "conservative level leaves MAC pinning in place; run at moderate if the guest keeps its NICs")
	}
	sort.Strings(recs)
	return recs
}
