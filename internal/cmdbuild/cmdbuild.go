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

// Package cmdbuild contains the build command
package cmdbuild

import (
	"context"
	"os"

	"github.com/pop-os/ci/internal/config"
	"github.com/pop-os/ci/internal/driver"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var BuildShort = `Build the staging apt archive from the repository working copies`
var BuildLong = `
Build snapshots every remote branch head of the configured repositories,
turns packageable snapshots into debian source packages, builds their
binaries with sbuild, and assembles signed apt repositories under
_build/repos keyed by pocket and series.

Branch names select the targets: a bare pocket name such as ` + "`release`" + `
targets every configured series, while ` + "`release_bionic`" + ` targets only
bionic.

The pool stage requires a clean _build/repos tree; rerun with --wipe or
remove the directory first.

#### Env Vars

  DEBEMAIL:

    Required. The GPG identity used to sign the generated Release files.
`
var BuildExamples = `
  # build every configured repository
  ci build

  # restrict the run to two repositories
  ci build theme wallpapers
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "build [REPO_NAME...]",
		Short:   BuildShort,
		Long:    BuildShort + "\n" + BuildLong,
		Example: BuildExamples,
		RunE:    r.runE,
		PreRunE: r.preRunE,
		Args:    cobra.ArbitraryArgs,
	}
	r.bindFlags(c.Flags())
	cmdutil.FixDocs("ci", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// BindRoot wires the build pipeline onto the root command so that plain
// `ci [REPO_NAME...]` runs a build.
func BindRoot(ctx context.Context, root *cobra.Command) {
	r := NewRunner(ctx, "ci")
	root.Args = cobra.ArbitraryArgs
	root.PreRunE = r.preRunE
	root.RunE = r.runE
	r.bindFlags(root.Flags())
}

func (r *Runner) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&r.configPath, "config", "",
		"path of a YAML run configuration overriding the defaults")
	fs.BoolVar(&r.wipe, "wipe", false,
		"remove _build/repos before the run; pool staging requires a clean tree")
}

// Runner contains the run function
type Runner struct {
	ctx        context.Context
	Command    *cobra.Command
	configPath string
	wipe       bool

	cfg    *config.Config
	signer string
}

func (r *Runner) preRunE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdbuild.preRunE"

	signer, err := config.SigningIdentity()
	if err != nil {
		return errors.E(op, err)
	}
	r.signer = signer

	if r.configPath != "" {
		r.cfg, err = config.Load(r.configPath)
		if err != nil {
			return errors.E(op, err)
		}
	} else {
		r.cfg = config.Default()
	}
	return nil
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdbuild.runE"

	if r.wipe {
		if err := os.RemoveAll(r.cfg.RepoDir()); err != nil {
			return errors.E(op, errors.Internal, err)
		}
	}

	d, err := driver.New(r.cfg, r.signer)
	if err != nil {
		return errors.E(op, err)
	}
	return cmdutil.HandleError(c, d.Run(r.ctx, args))
}
