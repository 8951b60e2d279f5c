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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/ui"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	NoColor    bool
	Debug      bool
	LogFile    string
}

func newRootCmd(globals *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seccorpus",
		Short: "Mine security fixes into a vulnerability-localization corpus",
		Long: `seccorpus mines a repository's history for security-fix commits and
narrows them, stage by stage, into single-function examples labeled with the
vulnerable lines and an explanation.

Stages: harvest, filter, intent, refine, mask, context, label.
Each stage writes a snapshot under <data_dir>/<repository>/ and is skipped on
the next run unless --force is given.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if globals.JSON {
				globals.Quiet = true
			}
			ui.InitColors(globals.NoColor)
		},
	}
	addGlobalFlags(cmd.PersistentFlags(), globals)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newInitCmd(globals),
		newRunCmd(globals),
		newStatusCmd(globals),
		newExportCmd(globals),
		newResetCmd(globals),
		newVersionCmd(),
	)
	return cmd
}

func addGlobalFlags(fs *flag.FlagSet, g *GlobalFlags) {
	fs.StringVarP(&g.ConfigPath, "config", "c", "", "Path to .seccorpus/project.yaml (default: ./.seccorpus/project.yaml)")
	fs.BoolVar(&g.JSON, "json", false, "Machine-readable JSON output")
	fs.BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&g.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&g.LogFile, "log-file", "", "Also write JSON logs to this file")
}

// project is a loaded workspace with its logger.
type project struct {
	cfg    *Config
	logger *slog.Logger
	close  func() error
}

// loadProject reads the project file and sets up logging.
func loadProject(cmd *cobra.Command, g *GlobalFlags) (*project, error) {
	path, err := ConfigPath(g.ConfigPath)
	if err != nil {
		return nil, uerrors.NewInternalError("Cannot determine working directory", err.Error(), "", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, configError(path, err)
	}

	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, uerrors.NewConfigError("Invalid logging level", err.Error(), "Use debug, info, warn or error", err)
	}
	if g.Debug {
		level = slog.LevelDebug
	}
	logFile := cfg.Logging.File
	if g.LogFile != "" {
		logFile = g.LogFile
	}
	logger, closeFn, err := setupLogger(cmd.ErrOrStderr(), level, logFile)
	if err != nil {
		return nil, uerrors.NewConfigError("Cannot open log file", err.Error(), "Check logging.file or --log-file", err)
	}
	slog.SetDefault(logger)
	return &project{cfg: cfg, logger: logger, close: closeFn}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seccorpus version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", date)
		},
	}
}
