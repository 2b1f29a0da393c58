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

// Package cmdcompare contains the compare command
package cmdcompare

import (
	"context"
	"fmt"

	"github.com/pop-os/ci/internal/compare"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/util/cmdutil"
	"github.com/pop-os/ci/pkg/printer"
	"github.com/spf13/cobra"
)

var CompareShort = `Report packages where the tracked origin lags a suite`
var CompareLong = `
Compare reads the downloaded apt Packages indices for SUITE and prints
every package whose newest version at the tracked origin is older than
the newest version any index in the suite carries. It never modifies
anything; run ` + "`apt update`" + ` first to refresh the indices.
`
var CompareExamples = `
  # packages where the staging ppa is behind bionic
  ci compare bionic
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "compare SUITE",
		Short:   CompareShort,
		Long:    CompareShort + "\n" + CompareLong,
		Example: CompareExamples,
		RunE:    r.runE,
		Args:    cobra.ExactArgs(1),
	}
	c.Flags().StringVar(&r.lists, "lists", "/var/lib/apt/lists",
		"directory containing the downloaded apt indices")
	c.Flags().StringVar(&r.origin, "origin", "ppa.launchpad.net/system76/pop",
		"index prefix of the tracked origin")
	cmdutil.FixDocs("ci", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
	lists   string
	origin  string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdcompare.runE"
	pr := printer.FromContextOrDie(r.ctx)

	stale, err := compare.Report(r.lists, args[0], r.origin)
	if err != nil {
		return errors.E(op, err)
	}

	for _, s := range stale {
		fmt.Fprintf(pr.OutStream(), "%s %s (newest %s)\n", s.Package, s.Tracked, s.Newest)
	}
	pr.Printf("%d stale packages in %s\n", len(stale), args[0])
	return nil
}
