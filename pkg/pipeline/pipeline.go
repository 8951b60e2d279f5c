// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline runs the mining funnel stage by stage over one
// repository.
//
// Each stage reads the snapshot of the stage before it, transforms or drops
// records, validates the survivors against internal/contract and writes its
// own snapshot. Stages whose snapshot already exists are skipped unless
// forced, so a run can be resumed after any failure:
//
//	p, err := pipeline.New(cfg, pipeline.Deps{Repo: repo, Provider: provider}, logger)
//	if err != nil {
//	    return err
//	}
//	res, err := p.Run(ctx, pipeline.RunOptions{From: record.StageHarvest, To: record.StageLabel})
//
// Oracle answers are joined to records by record ID. A missing or extra
// answer is an AlignmentError and aborts the stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/seccorpus/internal/contract"
	"github.com/kraklabs/seccorpus/pkg/funnel"
	"github.com/kraklabs/seccorpus/pkg/llm"
	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/record"
	"github.com/kraklabs/seccorpus/pkg/undefined"
	"github.com/kraklabs/seccorpus/pkg/vcs"
)

// Deps are the external collaborators of a pipeline.
type Deps struct {
	Repo      vcs.Repository
	Provider  llm.Provider
	Estimator funnel.Estimator
	Metrics   *Metrics
}

// ProgressFunc receives per-stage progress. Calls for one pipeline are
// serialized.
type ProgressFunc func(stage record.Stage, done, total int)

// RunOptions select what a run executes.
type RunOptions struct {
	From, To record.Stage

	// Force re-runs stages whose snapshot already exists.
	Force bool

	// Start and End restrict the intent stage to filter records [Start, End).
	// End <= 0 means no slicing.
	Start, End int

	Progress ProgressFunc
}

// Result summarizes a run.
type Result struct {
	RunID    string        `json:"run_id"`
	RepoID   string        `json:"repo_id"`
	Stages   []StageReport `json:"stages"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration_ns"`
}

// ErrContract is returned when a stage produced a record violating its
// stage contract.
var ErrContract = errors.New("stage contract violated")

// Pipeline runs the funnel for one repository.
type Pipeline struct {
	cfg       Config
	deps      Deps
	logger    *slog.Logger
	store     *SnapshotStore
	manifest  *ManifestManager
	filter    funnel.Filter
	refiner   funnel.Refiner
	scanner   *undefined.Scanner
	blacklist *undefined.Blacklist
	runner    *oracle.Runner

	progressMu sync.Mutex
	progress   ProgressFunc
}

// New validates cfg and assembles a pipeline.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if deps.Estimator == nil {
		deps.Estimator = funnel.ApproxEstimator{}
	}
	mode, _ := undefined.ParseMode(cfg.Context.Scanner)

	store := NewSnapshotStore(cfg.DataDir, cfg.RepoID)
	p := &Pipeline{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		store:    store,
		manifest: NewManifestManager(store.Dir()),
		filter: funnel.Filter{
			Bytes:      funnel.ByteGate{Max: cfg.Filter.MaxDiffBytes},
			Length:     funnel.LengthGate{Estimator: deps.Estimator, Max: cfg.Filter.MaxDiffTokens},
			SingleFile: cfg.Filter.SingleFile,
			Extensions: funnel.ExtensionGate{Patterns: cfg.Filter.Extensions},
		},
		refiner: funnel.Refiner{
			Size:     funnel.SizeGate{Estimator: deps.Estimator, Max: cfg.Refine.MaxFunctionTokens},
			Deletion: funnel.DeletionGate{Enabled: cfg.Refine.WithDeletions},
			Date:     funnel.DateGate{CutoffYear: cfg.Refine.CutoffYear},
		},
		scanner:   undefined.NewScanner(mode, logger),
		blacklist: undefined.NewBlacklist(cfg.Context.Blacklist, cfg.Context.MinIdentifierLength),
	}

	if deps.Provider != nil {
		maxBytes := cfg.Oracle.MaxBatchBytes
		if maxBytes <= 0 {
			maxBytes = contract.SoftLimitBytes()
		}
		p.runner = oracle.NewRunner(deps.Provider, oracle.RunnerConfig{
			Model:         cfg.Oracle.Model,
			Sampling:      cfg.Oracle.Sampling,
			BatchSize:     cfg.Oracle.BatchSize,
			MaxBatchBytes: maxBytes,
			BatchTimeout:  cfg.Oracle.BatchTimeout,
			Workers:       cfg.Oracle.Workers,
			OnResult:      deps.Metrics.observeOracle,
		}, logger)
	}
	return p, nil
}

// Store exposes the snapshot store.
func (p *Pipeline) Store() *SnapshotStore { return p.store }

// Manifest exposes the manifest manager.
func (p *Pipeline) Manifest() *ManifestManager { return p.manifest }

type stageFunc func(ctx context.Context, in []record.CommitRecord, rep *StageReport, opts RunOptions) ([]record.CommitRecord, error)

func (p *Pipeline) stageFuncs() map[record.Stage]stageFunc {
	return map[record.Stage]stageFunc{
		record.StageHarvest: p.harvest,
		record.StageFilter:  p.filterStage,
		record.StageIntent:  p.intent,
		record.StageRefine:  p.refine,
		record.StageMask:    p.mask,
		record.StageContext: p.context,
		record.StageLabel:   p.label,
	}
}

// oracleStages need a provider.
var oracleStages = map[record.Stage]bool{
	record.StageIntent:  true,
	record.StageContext: true,
	record.StageLabel:   true,
}

// Run executes stages From..To in order.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.To < opts.From {
		return nil, fmt.Errorf("stage range %s..%s is empty", opts.From, opts.To)
	}
	runID := uuid.NewString()
	start := time.Now()
	p.progress = opts.Progress
	res := &Result{RunID: runID, RepoID: p.cfg.RepoID}

	p.logger.Info("pipeline.start",
		"repo", p.cfg.RepoID,
		"run_id", runID,
		"from", opts.From.String(),
		"to", opts.To.String(),
		"force", opts.Force,
	)

	funcs := p.stageFuncs()
	var current []record.CommitRecord
	loaded := false
	for stage := opts.From; stage <= opts.To; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sliced := stage == record.StageIntent && opts.End > 0
		if !opts.Force && !sliced && p.store.Exists(stage) {
			p.logger.Info("pipeline.stage.skip", "stage", stage.String(), "reason", "snapshot exists")
			res.Stages = append(res.Stages, StageReport{Stage: stage.String(), RunID: runID, Skipped: true})
			loaded = false
			continue
		}

		if !loaded && stage > record.StageHarvest {
			in, err := p.store.Read(stage - 1)
			if err != nil {
				return nil, fmt.Errorf("load input of %s: %w", stage, err)
			}
			current = in
		}
		if stage == record.StageHarvest {
			current = nil
		}

		if oracleStages[stage] && p.runner == nil {
			return nil, fmt.Errorf("stage %s needs an LLM provider", stage)
		}

		rep := StageReport{Stage: stage.String(), RunID: runID, Input: len(current), StartedAt: time.Now().UTC()}
		p.logger.Info("pipeline.stage.start", "stage", stage.String(), "input", len(current))

		out, err := funcs[stage](ctx, current, &rep, opts)
		if err != nil {
			p.logger.Error("pipeline.stage.error", "stage", stage.String(), "err", err)
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		rep.Output = len(out)
		rep.FinishedAt = time.Now().UTC()

		if sliced {
			// Slice runs persist their own part file only.
			p.logger.Info("pipeline.stage.slice", "stage", stage.String(), "start", opts.Start, "end", opts.End, "judged", len(out))
			res.Stages = append(res.Stages, rep)
			res.Records = len(out)
			break
		}

		if err := contract.ValidateSnapshot(stage, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContract, err)
		}
		if err := p.store.Write(stage, out); err != nil {
			return nil, fmt.Errorf("write %s snapshot: %w", stage, err)
		}
		if err := p.manifest.Record(p.cfg.RepoID, rep); err != nil {
			return nil, fmt.Errorf("update manifest: %w", err)
		}
		p.deps.Metrics.observeStage(rep)

		p.logger.Info("pipeline.stage.done",
			"stage", stage.String(),
			"input", rep.Input,
			"output", rep.Output,
			"dropped", rep.Dropped(),
			"duration_ms", rep.Duration().Milliseconds(),
		)
		res.Stages = append(res.Stages, rep)
		current = out
		loaded = true
		res.Records = len(out)
	}

	res.Duration = time.Since(start)
	p.logger.Info("pipeline.complete",
		"repo", p.cfg.RepoID,
		"run_id", runID,
		"records", res.Records,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Reset deletes the snapshots of stage and all later stages.
func (p *Pipeline) Reset(stage record.Stage) error {
	if err := p.store.RemoveFrom(stage); err != nil {
		return err
	}
	var names []string
	for _, s := range record.Stages() {
		if s >= stage {
			names = append(names, s.String())
		}
	}
	return p.manifest.Forget(p.cfg.RepoID, names...)
}

// tracker reports progress for one stage from many goroutines.
type tracker struct {
	p     *Pipeline
	stage record.Stage
	total int
	mu    sync.Mutex
	done  int
}

func (p *Pipeline) track(stage record.Stage, total int) *tracker {
	t := &tracker{p: p, stage: stage, total: total}
	t.report()
	return t
}

func (t *tracker) add(n int) {
	t.mu.Lock()
	t.done += n
	t.mu.Unlock()
	t.report()
}

func (t *tracker) report() {
	if t.p.progress == nil {
		return
	}
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	t.p.progressMu.Lock()
	t.p.progress(t.stage, done, t.total)
	t.p.progressMu.Unlock()
}
