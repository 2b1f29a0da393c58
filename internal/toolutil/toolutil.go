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

// Package toolutil runs the external packaging tools the pipeline
// orchestrates (git, tar, dpkg-source, sbuild, apt-ftparchive, gpg).
// Every invocation is synchronous; a non-zero exit is returned as an
// *ExecError carrying the captured output.
package toolutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pop-os/ci/internal/errors"
	"k8s.io/klog/v2"
)

// NewRunner returns a Runner for the named tool, resolving it on PATH.
func NewRunner(tool, dir string) (*Runner, error) {
	const op errors.Op = "toolutil.NewRunner"
	p, err := exec.LookPath(tool)
	if err != nil {
		return nil, errors.E(op, errors.Tool,
			fmt.Errorf("no '%s' program on path: %w", tool, err))
	}

	return &Runner{
		Name: tool,
		path: p,
		Dir:  dir,
	}, nil
}

// Runner runs one external tool in a fixed working directory.
type Runner struct {
	// Name is the tool name as looked up on PATH, e.g. "dpkg-source".
	Name string

	// Path to the tool executable.
	path string

	// Dir is the directory the commands are run in.
	Dir string
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs the tool with the given arguments.
// The return value contains the output to Stdout and Stderr when
// running the command.
func (r *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	return r.run(ctx, nil, false, args...)
}

// RunVerbose runs the tool with the given arguments, mirroring the tool
// output to the process streams.
func (r *Runner) RunVerbose(ctx context.Context, args ...string) (RunResult, error) {
	return r.run(ctx, nil, true, args...)
}

// RunEnv runs the tool with extra environment entries of the form
// "KEY=value" appended to the inherited environment.
func (r *Runner) RunEnv(ctx context.Context, env []string, args ...string) (RunResult, error) {
	return r.run(ctx, env, false, args...)
}

func (r *Runner) run(ctx context.Context, env []string, verbose bool, args ...string) (RunResult, error) {
	const op errors.Op = "toolutil.run"

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), env...)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	if verbose {
		cmd.Stdout = io.MultiWriter(cmdStdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(cmdStderr, os.Stderr)
	} else {
		cmd.Stdout = cmdStdout
		cmd.Stderr = cmdStderr
	}

	klog.V(2).Infof("running %s %s (in %s)", r.Name, strings.Join(args, " "), cmd.Dir)
	err := cmd.Run()
	if err != nil {
		return RunResult{}, errors.E(op, errors.Tool, &ExecError{
			Tool:   r.Name,
			Args:   args,
			Err:    err,
			StdOut: cmdStdout.String(),
			StdErr: cmdStderr.String(),
		})
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

type ExecError struct {
	Tool   string
	Args   []string
	Err    error
	StdErr string
	StdOut string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Tool)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	b.WriteString(": ")
	b.WriteString(e.StdErr)
	return b.String()
}
