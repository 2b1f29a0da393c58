// Copyright 2022 The ci Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmdsync contains the sync command
package cmdsync

import (
	"context"
	"path/filepath"

	"github.com/pop-os/ci/internal/config"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/gitutil"
	"github.com/pop-os/ci/internal/util/cmdutil"
	"github.com/pop-os/ci/pkg/printer"
	"github.com/spf13/cobra"
)

var SyncShort = `Synchronize the upstream Debian/Ubuntu remotes`
var SyncLong = `
Sync ensures every configured repository has an upstream remote pointing
at its Debian or Ubuntu packaging repository and fetches it, so local
branches can be rebased onto fresh upstream state before a build.
Repositories without a configured upstream are skipped.
`
var SyncExamples = `
  # sync every configured repository
  ci sync

  # sync a single repository
  ci sync gnome-control-center
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "sync [REPO_NAME...]",
		Short:   SyncShort,
		Long:    SyncShort + "\n" + SyncLong,
		Example: SyncExamples,
		RunE:    r.runE,
		PreRunE: r.preRunE,
		Args:    cobra.ArbitraryArgs,
	}
	c.Flags().StringVar(&r.configPath, "config", "",
		"path of a YAML run configuration overriding the defaults")
	cmdutil.FixDocs("ci", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx        context.Context
	Command    *cobra.Command
	configPath string
	cfg        *config.Config
}

func (r *Runner) preRunE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdsync.preRunE"
	if r.configPath != "" {
		cfg, err := config.Load(r.configPath)
		if err != nil {
			return errors.E(op, err)
		}
		r.cfg = cfg
		return nil
	}
	r.cfg = config.Default()
	return nil
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdsync.runE"
	pr := printer.FromContextOrDie(r.ctx)

	for _, repo := range r.cfg.Selected(args) {
		url, ok := r.cfg.Upstreams[repo]
		if !ok {
			pr.OptPrintf(printer.NewOpt().Pkg(repo), "no upstream configured, skipping\n")
			continue
		}

		extractor, err := gitutil.NewExtractor(filepath.Join(r.cfg.RepoRoot, repo), r.cfg.GitDir())
		if err != nil {
			return errors.E(op, err)
		}

		pr.OptPrintf(printer.NewOpt().Pkg(repo).In("sync"), "fetching %s\n", url)
		if err := extractor.EnsureRemote(r.ctx, "upstream", url); err != nil {
			return errors.E(op, err)
		}
		if err := extractor.Fetch(r.ctx); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}
