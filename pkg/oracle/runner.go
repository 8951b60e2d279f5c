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

package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/seccorpus/pkg/llm"
)

// Failure reasons recorded on results.
const (
	FailureTimeout   = "oracle batch timeout"
	FailureTransport = "oracle failure"
)

// Request is one prompt keyed by the record it belongs to.
type Request struct {
	ID     string
	Prompt Prompt
}

// Result is the oracle's answer for one request. Failure is non-empty when no
// usable response was obtained; Text is then empty.
type Result struct {
	ID       string
	Task     Task
	Text     string
	Failure  string
	Err      error
	Duration time.Duration
}

// OK reports whether the oracle produced a response.
func (r Result) OK() bool { return r.Failure == "" }

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Model overrides the provider's default model.
	Model string

	// Sampling overrides per-task defaults field by field.
	Sampling Sampling

	// BatchSize is the number of requests per batch (default 64).
	BatchSize int

	// MaxBatchBytes caps the summed prompt size of a batch (0 = unbounded).
	MaxBatchBytes int

	// BatchTimeout bounds one batch (0 = no timeout).
	BatchTimeout time.Duration

	// Workers is the number of concurrent calls within a batch
	// (default BatchSize).
	Workers int

	// OnResult, if set, is called once per result from worker goroutines.
	OnResult func(Result)
}

// Runner sends prompt batches to a provider.
type Runner struct {
	provider llm.Provider
	cfg      RunnerConfig
	batcher  *Batcher
	logger   *slog.Logger
}

// NewRunner creates a runner for provider.
func NewRunner(provider llm.Provider, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = cfg.BatchSize
	}
	return &Runner{
		provider: provider,
		cfg:      cfg,
		batcher:  NewBatcher(cfg.BatchSize, cfg.MaxBatchBytes),
		logger:   logger,
	}
}

// Run sends every request and returns one result per request ID. Batches run
// one after another; requests within a batch run concurrently. Item failures
// are reported on their Result. Run itself fails only on duplicate IDs or a
// cancelled parent context.
func (r *Runner) Run(ctx context.Context, reqs []Request) (map[string]Result, error) {
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if _, dup := seen[req.ID]; dup {
			return nil, fmt.Errorf("duplicate oracle request id %s", req.ID)
		}
		seen[req.ID] = struct{}{}
	}

	results := make(map[string]Result, len(reqs))
	batches := r.batcher.Batch(reqs)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		failed := 0
		for _, res := range r.runBatch(ctx, batch) {
			if !res.OK() {
				failed++
			}
			results[res.ID] = res
		}
		r.logger.Debug("oracle.batch.done",
			"provider", r.provider.Name(),
			"batch", i+1,
			"batches", len(batches),
			"size", len(batch),
			"failed", failed,
			"duration", time.Since(start),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runBatch(ctx context.Context, batch []Request) []Result {
	bctx, cancel := ctx, context.CancelFunc(func() {})
	if r.cfg.BatchTimeout > 0 {
		bctx, cancel = context.WithTimeout(ctx, r.cfg.BatchTimeout)
	}
	defer cancel()

	out := make([]Result, len(batch))
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, req := range batch {
		g.Go(func() error {
			out[i] = r.call(bctx, req)
			if r.cfg.OnResult != nil {
				r.cfg.OnResult(out[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(bctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		r.logger.Warn("oracle.batch.timeout", "size", len(batch), "timeout", r.cfg.BatchTimeout)
	}
	return out
}

func (r *Runner) call(ctx context.Context, req Request) Result {
	res := Result{ID: req.ID, Task: req.Prompt.Task}
	start := time.Now()
	resp, err := r.provider.Generate(ctx, req.Prompt.request(r.cfg.Model, r.cfg.Sampling))
	res.Duration = time.Since(start)
	if err == nil && resp == nil {
		err = errors.New("provider returned no response")
	}
	if err != nil {
		res.Err = err
		res.Failure = FailureTransport
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Failure = FailureTimeout
		}
		r.logger.Debug("oracle.request.failed", "id", req.ID, "task", req.Prompt.Task, "err", err)
		return res
	}
	res.Text = strings.TrimSpace(resp.Text)
	return res
}
