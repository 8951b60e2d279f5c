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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/output"
	"github.com/kraklabs/seccorpus/internal/ui"
	"github.com/kraklabs/seccorpus/pkg/llm"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
	"github.com/kraklabs/seccorpus/pkg/vcs"
)

type runFlags struct {
	stage, from, to string
	force           bool
	start, end      int
	workers         int
	metricsAddr     string
	oracle          oracleFlags
}

func newRunCmd(g *GlobalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the mining funnel",
		Long: `Runs the stages harvest..label in order. A stage whose snapshot exists is
skipped unless --force is given, so an interrupted run resumes where it stopped.

--start/--end restrict the intent stage to a slice of the filter snapshot and
write a part file; a later full intent run reuses the verdicts of all parts.`,
		Example: `  seccorpus run
  seccorpus run --to filter
  seccorpus run --stage intent --start 0 --end 1000
  seccorpus run --from context --force --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, g, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.stage, "stage", "", "Run only this stage")
	fs.StringVar(&f.from, "from", record.StageHarvest.String(), "First stage to run")
	fs.StringVar(&f.to, "to", record.StageLabel.String(), "Last stage to run")
	fs.BoolVar(&f.force, "force", false, "Re-run stages whose snapshot exists")
	fs.IntVar(&f.start, "start", 0, "Intent slice start (inclusive)")
	fs.IntVar(&f.end, "end", 0, "Intent slice end (exclusive, 0 = no slicing)")
	fs.IntVar(&f.workers, "workers", -1, "Per-record workers (default: project file, 0 = NumCPU)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	addOracleFlags(fs, &f.oracle)
	return cmd
}

func (f runFlags) options() (pipeline.RunOptions, error) {
	var opts pipeline.RunOptions
	from, to := f.from, f.to
	if f.stage != "" {
		from, to = f.stage, f.stage
	}
	var err error
	if opts.From, err = record.ParseStage(from); err != nil {
		return opts, uerrors.NewInputError("Unknown stage", err.Error(), "Use one of harvest, filter, intent, refine, mask, context, label")
	}
	if opts.To, err = record.ParseStage(to); err != nil {
		return opts, uerrors.NewInputError("Unknown stage", err.Error(), "Use one of harvest, filter, intent, refine, mask, context, label")
	}
	if opts.To < opts.From {
		return opts, uerrors.NewInputError("Empty stage range", fmt.Sprintf("--from %s is after --to %s", from, to), "Swap --from and --to")
	}
	if f.end > 0 {
		if f.start < 0 || f.start >= f.end {
			return opts, uerrors.NewInputError("Invalid intent slice", fmt.Sprintf("--start %d --end %d", f.start, f.end), "Use 0 <= start < end")
		}
		if opts.From > record.StageIntent || opts.To < record.StageIntent {
			return opts, uerrors.NewInputError("Slice flags need the intent stage", "--start/--end only apply to intent", "Add --stage intent")
		}
	}
	opts.Force = f.force
	opts.Start, opts.End = f.start, f.end
	return opts, nil
}

func needsOracle(opts pipeline.RunOptions) bool {
	return opts.From <= record.StageLabel && opts.To >= record.StageIntent
}

func runRun(cmd *cobra.Command, g *GlobalFlags, f runFlags) error {
	opts, err := f.options()
	if err != nil {
		return err
	}
	proj, err := loadProject(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = proj.close() }()
	cfg, logger := proj.cfg, proj.logger
	f.oracle.apply(&cfg.Oracle)
	if f.workers >= 0 {
		cfg.Workers = f.workers
	}

	repo, err := vcs.Open(cfg.Repository.Backend, cfg.RepoPath(), logger)
	if err != nil {
		return uerrors.NewVCSError("Cannot open repository", err.Error(), "Check repository.path and repository.backend in the project file", err)
	}

	var provider llm.Provider
	if needsOracle(opts) {
		provider, err = llm.NewProvider(cfg.ProviderConfig())
		if err != nil {
			return uerrors.NewOracleError("Cannot create LLM provider", err.Error(), "Check the oracle section of the project file or the SECCORPUS_LLM_* variables", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)
	if f.metricsAddr != "" {
		srv := serveMetrics(f.metricsAddr, reg, logger)
		defer func() { _ = srv.Close() }()
	}

	p, err := pipeline.New(cfg.Pipeline(), pipeline.Deps{Repo: repo, Provider: provider, Metrics: metrics}, logger)
	if err != nil {
		return uerrors.NewConfigError("Invalid pipeline configuration", err.Error(), "Edit the project file", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bars := newStageBars(NewProgressConfig(*g))
	opts.Progress = bars.Func()
	res, err := p.Run(ctx, opts)
	bars.finish()
	if err != nil {
		return runError(err)
	}

	if g.JSON {
		return output.JSONTo(cmd.OutOrStdout(), res)
	}
	printRunResult(cmd.OutOrStdout(), res, p.Store().Dir())
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics.http.error", "err", err)
		}
	}()
	return srv
}

func printRunResult(w io.Writer, res *pipeline.Result, dir string) {
	p := ui.NewPrinter(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Run Complete ===")
	fmt.Fprintf(w, "Repository: %s\n", res.RepoID)
	fmt.Fprintf(w, "Run ID: %s\n", res.RunID)
	fmt.Fprintln(w)
	for _, st := range res.Stages {
		if st.Skipped {
			fmt.Fprintf(w, "  %-10s %s\n", st.Stage, ui.DimText("skipped (snapshot exists)"))
			continue
		}
		p.StageCounts(st.Stage, st.Input, st.Output, st.Drops)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d\n", res.Records)
	fmt.Fprintf(w, "Total: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Snapshots in: %s\n", dir)
}
