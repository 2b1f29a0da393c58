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

// Package apt assembles the pocket/series pool tree and its signed APT
// metadata.
//
// The pool stage assumes a clean output tree: each (repo, series,
// pocket) tuple is staged at most once per run, and a rerun has to start
// from a wiped repos directory.
package apt

import (
	"context"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/internal/source"
)

// NewAssembler returns an Assembler rooted at repoDir. arch names the
// binary component directory (binary-<arch>); origin and label seed the
// Release metadata, with the pocket appended to origin.
func NewAssembler(repoDir, arch, origin, label string) *Assembler {
	return &Assembler{
		repoDir: repoDir,
		arch:    arch,
		origin:  origin,
		label:   label,
	}
}

// Assembler stages artifacts into pool directories and generates the
// dists metadata.
type Assembler struct {
	repoDir string
	arch    string
	origin  string
	label   string
}

// Pool stages a source package and its binary artifacts into
// <pocket>/pool/<codename>/<repo>/.
//
// The leaf directory must not exist yet; an existing directory fails the
// run (clean-tree precondition).
func (a *Assembler) Pool(ctx context.Context, repo string, src *source.Package, debs []string, s series.Series, p series.Pocket) error {
	const op errors.Op = "apt.Pool"

	poolDir := filepath.Join(a.repoDir, string(p), "pool", s.Codename, repo)
	if err := os.MkdirAll(filepath.Dir(poolDir), 0755); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	if err := os.Mkdir(poolDir, 0755); err != nil {
		if os.IsExist(err) {
			return errors.E(op, errors.Exist, err)
		}
		return errors.E(op, errors.Internal, err)
	}

	staged := append([]string{src.Dsc, src.Tarball}, debs...)
	for _, artifact := range staged {
		dest := filepath.Join(poolDir, filepath.Base(artifact))
		if err := copy.Copy(artifact, dest); err != nil {
			return errors.E(op, errors.Internal, err)
		}
	}
	return nil
}
