// Copyright 2021 The ci Authors
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

// Package printer defines utilities to display ci CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer defines capabilities to display content in the ci CLI.
// Abstracting away printing output in the CLI so that we can evolve
// the ci CLI UX.
type Printer interface {
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Options prefix printed messages with the pipeline coordinates they
// belong to, so progress output stays attributable in long runs.
type Options struct {
	// Repo is the name of the repository being processed.
	Repo string
	// Commit is the commit id the pipeline stage operates on.
	Commit string
	// Series is the codename of the distribution series being targeted.
	Series string
	// Stage names the pipeline stage, e.g. "source", "sbuild", "dist".
	Stage string
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// Pkg sets the repository name in options
func (opt *Options) Pkg(repo string) *Options {
	opt.Repo = repo
	return opt
}

// At sets the commit id in options
func (opt *Options) At(commit string) *Options {
	opt.Commit = commit
	return opt
}

// For sets the series codename in options
func (opt *Options) For(series string) *Options {
	opt.Series = series
	return opt
}

// In sets the stage name in options
func (opt *Options) In(stage string) *Options {
	opt.Stage = stage
	return opt
}

// prefix renders the coordinate prefix, e.g. "desktop[1a2b3c4] bionic/sbuild: ".
func (opt *Options) prefix() string {
	if opt == nil {
		return ""
	}
	b := new(strings.Builder)
	if opt.Repo != "" {
		b.WriteString(opt.Repo)
	}
	if opt.Commit != "" {
		id := opt.Commit
		if len(id) > 7 {
			id = id[:7]
		}
		fmt.Fprintf(b, "[%s]", id)
	}
	if opt.Series != "" || opt.Stage != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(opt.Series)
		if opt.Series != "" && opt.Stage != "" {
			b.WriteString("/")
		}
		b.WriteString(opt.Stage)
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString(": ")
	return b.String()
}

// New returns an instance of Printer.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
	}
}

// printer implements Printer interface.
type printer struct {
	outStream io.Writer
	errStream io.Writer
}

// OutStream returns the StdOut stream, this can be used by callers to print
// command output to stdout.
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// ErrStream returns the StdErr stream, this can be used by callers to print
// command output to stderr, print only error/debug/info logs to this stream.
func (pr *printer) ErrStream() io.Writer {
	return pr.errStream
}

// Printf is the wrapper over fmt.Printf that displays the output.
// This will print messages to stderr stream.
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.errStream, format, args...)
}

// OptPrintf is the wrapper over fmt.Printf that displays the output
// prefixed with the pipeline coordinates carried by opt. This will print
// messages to stderr stream.
// https://mehulkar.com/blog/2017/11/stdout-vs-stderr/
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		fmt.Fprintf(pr.errStream, format, args...)
		return
	}
	fmt.Fprintf(pr.errStream, opt.prefix()+format, args...)
}

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.
const printerKey contextKey = 0

// FromContextOrDie returns printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
