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
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

// ProgressConfig determines if and how progress should be displayed.
type ProgressConfig struct {
	// Enabled is false with --quiet, --json or when stderr is not a TTY.
	Enabled bool
	Writer  io.Writer
	NoColor bool
}

// NewProgressConfig creates a progress configuration from the global flags
// and TTY detection.
func NewProgressConfig(globals GlobalFlags) ProgressConfig {
	enabled := !globals.Quiet && !globals.JSON && isatty.IsTerminal(os.Stderr.Fd())
	return ProgressConfig{
		Enabled: enabled,
		Writer:  os.Stderr,
		NoColor: globals.NoColor,
	}
}

// NewProgressBar creates a progress bar with consistent styling. It returns
// nil when progress is disabled.
func NewProgressBar(cfg ProgressConfig, total int64, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// stageBars keeps one bar per stage step and feeds it pipeline progress.
// A stage that restarts its count (harvest greps, then fetches) gets a
// fresh bar.
type stageBars struct {
	cfg   ProgressConfig
	mu    sync.Mutex
	stage record.Stage
	total int
	bar   *progressbar.ProgressBar
}

func newStageBars(cfg ProgressConfig) *stageBars {
	return &stageBars{cfg: cfg, stage: -1}
}

// Func returns the pipeline callback, or nil when progress is disabled.
func (s *stageBars) Func() pipeline.ProgressFunc {
	if !s.cfg.Enabled {
		return nil
	}
	return s.update
}

func (s *stageBars) update(stage record.Stage, done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar == nil || stage != s.stage || total != s.total {
		s.finishLocked()
		s.stage, s.total = stage, total
		s.bar = NewProgressBar(s.cfg, int64(total), stage.String())
	}
	if s.bar != nil {
		_ = s.bar.Set(done)
	}
}

func (s *stageBars) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

func (s *stageBars) finishLocked() {
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
}
