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

package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/kraklabs/seccorpus/pkg/funnel"
	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/undefined"
)

// Config configures a pipeline run for one repository.
type Config struct {
	// RepoID names the repository in record IDs and snapshot paths.
	RepoID string `yaml:"-"`

	// DataDir holds the per-repository snapshot directories.
	DataDir string `yaml:"-"`

	// Workers bounds per-record concurrency (0 = NumCPU).
	Workers int `yaml:"-"`

	Harvest funnel.Keywords `yaml:"harvest"`
	Filter  FilterConfig    `yaml:"filter"`
	Refine  RefineConfig    `yaml:"refine"`
	Context ContextConfig   `yaml:"context"`
	Oracle  OracleConfig    `yaml:"oracle"`
}

// FilterConfig configures the admission gates.
type FilterConfig struct {
	MaxDiffBytes  int      `yaml:"max_diff_bytes"`
	MaxDiffTokens int      `yaml:"max_diff_tokens"`
	SingleFile    bool     `yaml:"single_file"`
	Extensions    []string `yaml:"extensions"`
}

// RefineConfig configures the function-block gates.
type RefineConfig struct {
	MaxFunctionTokens int  `yaml:"max_function_tokens"`
	WithDeletions     bool `yaml:"with_deletions"`
	CutoffYear        int  `yaml:"cutoff_year"`
}

// ContextConfig configures undefined-element scanning and filtering.
type ContextConfig struct {
	Scanner             string   `yaml:"scanner"`
	MinIdentifierLength int      `yaml:"min_identifier_length"`
	Blacklist           []string `yaml:"blacklist"`
}

// OracleConfig configures oracle batching and sampling.
type OracleConfig struct {
	Model         string          `yaml:"model,omitempty"`
	Sampling      oracle.Sampling `yaml:",inline"`
	BatchSize     int             `yaml:"batch_size"`
	MaxBatchBytes int             `yaml:"max_batch_bytes,omitempty"`
	BatchTimeout  time.Duration   `yaml:"batch_timeout"`
	Workers       int             `yaml:"workers"`
}

// DefaultConfig returns the stock funnel settings.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		Harvest: funnel.DefaultKeywords(),
		Filter: FilterConfig{
			MaxDiffBytes:  1_000_000,
			MaxDiffTokens: 1000,
			SingleFile:    true,
			Extensions:    []string{".c", ".cc", ".cpp", ".h"},
		},
		Refine: RefineConfig{
			MaxFunctionTokens: 1000,
			WithDeletions:     true,
			CutoffYear:        2023,
		},
		Context: ContextConfig{
			Scanner:             string(undefined.DefaultMode),
			MinIdentifierLength: undefined.DefaultMinLength,
			Blacklist:           undefined.DefaultBlacklist(),
		},
		Oracle: OracleConfig{
			Sampling:     oracle.Sampling{Temperature: 0.8, TopP: 0.9},
			BatchSize:    64,
			BatchTimeout: 30 * time.Minute,
		},
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.RepoID == "" {
		errs = append(errs, errors.New("repository name is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Filter.MaxDiffTokens <= 0 {
		errs = append(errs, fmt.Errorf("filter.max_diff_tokens must be positive, got %d", c.Filter.MaxDiffTokens))
	}
	if c.Refine.MaxFunctionTokens <= 0 {
		errs = append(errs, fmt.Errorf("refine.max_function_tokens must be positive, got %d", c.Refine.MaxFunctionTokens))
	}
	if _, err := undefined.ParseMode(c.Context.Scanner); err != nil {
		errs = append(errs, fmt.Errorf("context.scanner: %w", err))
	}
	if c.Oracle.Sampling.Temperature < 0 || c.Oracle.Sampling.TopP < 0 || c.Oracle.Sampling.TopP > 1 {
		errs = append(errs, errors.New("oracle sampling out of range"))
	}
	if c.Oracle.BatchTimeout < 0 {
		errs = append(errs, errors.New("oracle.batch_timeout must not be negative"))
	}
	if len(c.Harvest.All()) == 0 {
		errs = append(errs, errors.New("harvest keywords are empty"))
	}
	return errors.Join(errs...)
}
