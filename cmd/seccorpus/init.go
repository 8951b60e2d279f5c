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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/seccorpus/internal/bootstrap"
	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/internal/ui"
	"github.com/kraklabs/seccorpus/pkg/vcs"
)

type initFlags struct {
	repo, name, backend, dataDir string
	force                        bool
	oracle                       oracleFlags
}

// oracleFlags are the provider settings accepted by init and run.
type oracleFlags struct {
	provider, baseURL, model, apiKey string
}

func addOracleFlags(fs *flag.FlagSet, o *oracleFlags) {
	fs.StringVar(&o.provider, "llm-provider", "", "LLM provider (completion, ollama, openai, anthropic, mock)")
	fs.StringVar(&o.baseURL, "llm-url", "", "LLM API base URL")
	fs.StringVar(&o.model, "llm-model", "", "LLM model name")
	fs.StringVar(&o.apiKey, "llm-api-key", "", "LLM API key (optional for local servers)")
}

func (o oracleFlags) apply(c *OracleConfig) {
	if o.provider != "" {
		c.Provider = o.provider
	}
	if o.baseURL != "" {
		c.BaseURL = o.baseURL
	}
	if o.model != "" {
		c.Model = o.model
	}
	if o.apiKey != "" {
		c.APIKey = o.apiKey
	}
}

func newInitCmd(g *GlobalFlags) *cobra.Command {
	var f initFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .seccorpus/project.yaml in the current directory",
		Example: `  seccorpus init --repo ../FFmpeg --name FFmpeg/FFmpeg
  seccorpus init --repo . --name torvalds/linux --backend gogit --llm-provider ollama`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, g, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.repo, "repo", ".", "Path to the git repository to mine")
	fs.StringVar(&f.name, "name", "", "Repository name used in record IDs, e.g. FFmpeg/FFmpeg (default: directory name)")
	fs.StringVar(&f.backend, "backend", vcs.BackendGit, "History backend: git (subprocess) or gogit (in-process)")
	fs.StringVar(&f.dataDir, "data-dir", "data", "Snapshot directory, relative to the workspace")
	fs.BoolVar(&f.force, "force", false, "Overwrite an existing project file")
	addOracleFlags(fs, &f.oracle)
	return cmd
}

func runInit(cmd *cobra.Command, g *GlobalFlags, f initFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return uerrors.NewInternalError("Cannot determine working directory", err.Error(), "", err)
	}
	root := cwd
	if g.ConfigPath != "" {
		root = filepath.Dir(filepath.Dir(g.ConfigPath))
	}

	repoPath, err := filepath.Abs(f.repo)
	if err != nil {
		return uerrors.NewInputError("Invalid repository path", err.Error(), "Pass --repo <path>")
	}
	if f.name == "" {
		f.name = filepath.Base(repoPath)
	}
	if strings.TrimSpace(f.name) == "" {
		return uerrors.NewInputError("Repository name is empty", "--name was not given and the path has no base name", "Pass --name owner/repo")
	}
	if _, err := vcs.Open(f.backend, repoPath, nil); err != nil {
		return uerrors.NewVCSError("Cannot open repository", err.Error(), "Check --repo and --backend", err)
	}

	cfg := DefaultConfig(repoPath, f.name)
	cfg.Repository.Backend = f.backend
	cfg.DataDir = f.dataDir
	f.oracle.apply(&cfg.Oracle)

	info, err := bootstrap.InitProject(bootstrap.ProjectConfig{
		Root:     root,
		RepoID:   f.name,
		DataDir:  f.dataDir,
		Settings: cfg,
		Force:    f.force,
	}, nil)
	if errors.Is(err, bootstrap.ErrExists) {
		return uerrors.NewConfigError("Project file already exists", err.Error(), "Use --force to overwrite it", err)
	}
	if err != nil {
		return uerrors.NewConfigError("Cannot initialize workspace", err.Error(), "Check directory permissions", err)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Successf("Created %s", info.ConfigPath)
	p.KeyValue("Repository", f.name)
	p.KeyValue("Snapshots", info.SnapshotDir)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Review .seccorpus/project.yaml (oracle provider, keywords, gates)")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Run 'seccorpus run --to filter' to harvest and filter commits")
	fmt.Fprintln(cmd.OutOrStdout(), "  3. Run 'seccorpus run' once the LLM server is reachable")
	return nil
}
