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

// Package source turns git snapshots into versioned debian source
// packages with a synthesized changelog entry.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/gitutil"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/internal/toolutil"
	"pault.ag/go/debian/control"
)

// ErrNotPackageable marks a snapshot without a debian/ directory. The
// caller skips that repository/series combination and continues.
var ErrNotPackageable = fmt.Errorf("snapshot has no debian packaging metadata")

// Package is a built debian source package.
type Package struct {
	// Name is the source package name from debian/control.
	Name string

	// Version is the full synthesized package version.
	Version string

	// Dsc is the path of the .dsc control file.
	Dsc string

	// Tarball is the path of the .tar.xz source archive.
	Tarball string
}

// Version constructs the package version for a snapshot built against a
// series. The layout 0~<timestamp>~<series-version>~<commit> keeps
// versions monotonic per branch, unique per commit and series, and
// reproducible across runs.
func Version(snap gitutil.Snapshot, s series.Series) string {
	return fmt.Sprintf("0~%d~%s~%s", snap.Time, s.Version, snap.Commit)
}

// NewPackager returns a Packager writing into sourceDir. Changelog
// entries are attributed to maintainer.
func NewPackager(sourceDir, maintainer string) (*Packager, error) {
	const op errors.Op = "source.NewPackager"
	tar, err := toolutil.NewRunner("tar", "")
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &Packager{
		sourceDir:  sourceDir,
		maintainer: maintainer,
		tar:        tar,
	}, nil
}

// Packager builds source packages into a fixed output directory. The
// dpkg-source program is only resolved when a build actually has to run.
type Packager struct {
	sourceDir  string
	maintainer string
	tar        *toolutil.Runner
}

// Build produces the source package for (repo, snapshot, series).
//
// The snapshot archive is extracted into a scratch directory to learn the
// package name; when both output files already exist the build is skipped
// and the existing paths are returned. Otherwise a changelog entry dated
// from the commit is synthesized and dpkg-source runs with the build
// epoch pinned to the commit timestamp and xz compression.
func (p *Packager) Build(ctx context.Context, repo string, snap gitutil.Snapshot, s series.Series) (*Package, error) {
	const op errors.Op = "source.Build"

	scratch, err := os.MkdirTemp("", "ci-source-")
	if err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	defer os.RemoveAll(scratch)

	if _, err := p.tar.Run(ctx, "-x", "-f", snap.Archive, "-C", scratch); err != nil {
		return nil, errors.E(op, err)
	}

	if _, err := os.Stat(filepath.Join(scratch, "debian")); err != nil {
		return nil, errors.E(op, ErrNotPackageable)
	}

	ctrl, err := control.ParseControlFile(filepath.Join(scratch, "debian", "control"))
	if err != nil {
		return nil, errors.E(op, errors.Parse, err)
	}
	name := ctrl.Source.Source

	pkg := &Package{
		Name:    name,
		Version: Version(snap, s),
		Dsc:     filepath.Join(p.sourceDir, fmt.Sprintf("%s_%s.dsc", name, Version(snap, s))),
		Tarball: filepath.Join(p.sourceDir, fmt.Sprintf("%s_%s.tar.xz", name, Version(snap, s))),
	}

	if exists(pkg.Dsc) && exists(pkg.Tarball) {
		return pkg, nil
	}

	changelog := fmt.Sprintf("%s (%s) %s; urgency=medium\n\n  * Auto Build\n\n -- %s  %s\n",
		name, pkg.Version, s.Codename, p.maintainer, snap.Date)
	if err := os.WriteFile(filepath.Join(scratch, "debian", "changelog"), []byte(changelog), 0644); err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}

	dpkgSource, err := toolutil.NewRunner("dpkg-source", p.sourceDir)
	if err != nil {
		return nil, errors.E(op, err)
	}

	absScratch, err := filepath.Abs(scratch)
	if err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	env := []string{fmt.Sprintf("SOURCE_DATE_EPOCH=%d", snap.Time)}
	if _, err := dpkgSource.RunEnv(ctx, env,
		"--format=3.0 (native)", "-Zxz", "--build", absScratch); err != nil {
		return nil, errors.E(op, err)
	}

	return pkg, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
