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

package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	cicommands "github.com/pop-os/ci/commands"
	"github.com/pop-os/ci/internal/cmdbuild"
	"github.com/pop-os/ci/internal/util/cmdutil"
	"github.com/pop-os/ci/pkg/printer"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// version is replaced at link time on release builds.
var version = "unknown"

func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci [REPO_NAME...]",
		Short: cmdbuild.BuildShort,
		Long:  cmdbuild.BuildShort + "\n" + cmdbuild.BuildLong,
		Example: `  # build every configured repository
  ci

  # restrict the run to two repositories
  ci theme wallpapers

  # packages where the staging ppa is behind bionic
  ci compare bionic
`,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
	}

	// register the klog flags (-v et al)
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	// wire the global printer
	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	// help and documentation
	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(cicommands.GetCICommands(ctx, "ci")...)

	// a bare `ci [repo...]` invocation runs the build pipeline
	cmdbuild.BindRoot(ctx, cmd)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintf(os.Stderr, "ci requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	cmd.AddCommand(versionCmd)
	return cmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ci",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}
