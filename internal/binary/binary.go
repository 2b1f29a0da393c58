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

// Package binary drives the chroot-based builder to produce .deb
// artifacts from source packages.
package binary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/internal/toolutil"
	"pault.ag/go/debian/control"
)

// NewBuilder returns a Builder writing .deb files into binaryDir.
// Packages that are not architecture independent are built for arch
// only. extraRepo is an apt source line template (%s is the series
// codename) injected into the build environment together with its
// signing key, so build dependencies resolve against the staging
// archive being assembled.
func NewBuilder(binaryDir, arch, extraRepo, extraRepoKey string) *Builder {
	return &Builder{
		binaryDir:    binaryDir,
		arch:         arch,
		extraRepo:    extraRepo,
		extraRepoKey: extraRepoKey,
	}
}

// Builder invokes sbuild once per source package, skipping sources whose
// declared binaries are all present already. The sbuild program is only
// resolved when a build actually has to run.
type Builder struct {
	binaryDir    string
	arch         string
	extraRepo    string
	extraRepoKey string
}

// Expected computes the .deb paths a dsc is declared to produce.
// "all" is preserved verbatim; any other architecture is forced to the
// builder's single build architecture.
func (b *Builder) Expected(dsc *control.DSC) []string {
	arch := b.arch
	if archAll(dsc) {
		arch = "all"
	}
	debs := make([]string, 0, len(dsc.Binaries))
	for _, bin := range dsc.Binaries {
		debs = append(debs, filepath.Join(b.binaryDir,
			fmt.Sprintf("%s_%s_%s.deb", bin, dsc.Version.String(), arch)))
	}
	return debs
}

// Build produces the .deb artifacts for a dsc targeting a series. When
// every expected artifact already exists the build is skipped; otherwise
// sbuild runs once, which may produce all declared binaries in a single
// invocation. The returned paths cover both cases.
func (b *Builder) Build(ctx context.Context, dscPath string, s series.Series) ([]string, error) {
	const op errors.Op = "binary.Build"

	dsc, err := control.ParseDscFile(dscPath)
	if err != nil {
		return nil, errors.E(op, errors.Parse, err)
	}

	debs := b.Expected(dsc)
	missing := false
	for _, deb := range debs {
		if _, err := os.Stat(deb); err != nil {
			missing = true
			break
		}
	}
	if !missing {
		return debs, nil
	}

	sbuild, err := toolutil.NewRunner("sbuild", b.binaryDir)
	if err != nil {
		return nil, errors.E(op, err)
	}

	absDsc, err := filepath.Abs(dscPath)
	if err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	args := []string{
		"--dist=" + s.Codename,
		"--extra-repository=" + fmt.Sprintf(b.extraRepo, s.Codename),
		"--extra-repository-key=" + b.extraRepoKey,
		absDsc,
	}
	if archAll(dsc) {
		args = append([]string{"--arch-all"}, args...)
	}
	if _, err := sbuild.RunVerbose(ctx, args...); err != nil {
		return nil, errors.E(op, err)
	}

	return debs, nil
}

// archAll reports whether every declared architecture is "all".
func archAll(dsc *control.DSC) bool {
	if len(dsc.Architectures) == 0 {
		return false
	}
	for _, arch := range dsc.Architectures {
		if arch.CPU != "all" {
			return false
		}
	}
	return true
}
