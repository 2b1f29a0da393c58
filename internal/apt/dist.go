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

package apt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/internal/toolutil"
)

// Dist generates the dists/<codename> metadata for one pocket and
// series: Sources and Packages indices with gzip side copies, the
// per-component Release stanzas, the apt-ftparchive top-level Release,
// and the three signed artifacts (InRelease, Release.gpg, Key.gpg) for
// the signer identity.
func (a *Assembler) Dist(ctx context.Context, p series.Pocket, s series.Series, signer string) error {
	const op errors.Op = "apt.Dist"

	pocketDir, err := filepath.Abs(filepath.Join(a.repoDir, string(p)))
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	distDir := filepath.Join(pocketDir, "dists", s.Codename)
	sourceDir := filepath.Join(distDir, "main", "source")
	binaryDir := filepath.Join(distDir, "main", "binary-"+a.arch)
	for _, dir := range []string{sourceDir, binaryDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.E(op, errors.Internal, err)
		}
	}

	// index paths must be pool/... relative, so apt-ftparchive runs at
	// the pocket root
	ftparchive, err := toolutil.NewRunner("apt-ftparchive", pocketDir)
	if err != nil {
		return errors.E(op, err)
	}

	pool := filepath.Join("pool", s.Codename)
	rr, err := ftparchive.Run(ctx, "-qq", "sources", pool)
	if err != nil {
		return errors.E(op, err)
	}
	if err := writeIndex(filepath.Join(sourceDir, "Sources"), rr.Stdout); err != nil {
		return errors.E(op, errors.Internal, err)
	}

	rr, err = ftparchive.Run(ctx, "-qq", "packages", pool)
	if err != nil {
		return errors.E(op, err)
	}
	if err := writeIndex(filepath.Join(binaryDir, "Packages"), rr.Stdout); err != nil {
		return errors.E(op, errors.Internal, err)
	}

	origin := fmt.Sprintf("%s-%s", a.origin, p)
	if err := os.WriteFile(filepath.Join(sourceDir, "Release"),
		[]byte(a.componentRelease(s, origin, "source")), 0644); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	if err := os.WriteFile(filepath.Join(binaryDir, "Release"),
		[]byte(a.componentRelease(s, origin, a.arch)), 0644); err != nil {
		return errors.E(op, errors.Internal, err)
	}

	rr, err = ftparchive.Run(ctx,
		"-o", "APT::FTPArchive::Release::Origin="+origin,
		"-o", "APT::FTPArchive::Release::Label="+a.label,
		"-o", "APT::FTPArchive::Release::Suite="+s.Codename,
		"-o", "APT::FTPArchive::Release::Version="+s.Version,
		"-o", "APT::FTPArchive::Release::Codename="+s.Codename,
		"-o", "APT::FTPArchive::Release::Architectures="+a.arch+" all",
		"-o", "APT::FTPArchive::Release::Components=main",
		"-o", "APT::FTPArchive::Release::Description="+a.label+" "+s.Codename+" "+s.Version,
		"release", filepath.Join("dists", s.Codename))
	if err != nil {
		return errors.E(op, err)
	}
	if err := os.WriteFile(filepath.Join(distDir, "Release"), []byte(rr.Stdout), 0644); err != nil {
		return errors.E(op, errors.Internal, err)
	}

	return a.sign(ctx, distDir, signer)
}

// componentRelease renders the hand-authored Release stanza placed in
// each component directory.
func (a *Assembler) componentRelease(s series.Series, origin, arch string) string {
	return fmt.Sprintf(
		"Archive: %s\nVersion: %s\nComponent: main\nOrigin: %s\nLabel: %s\nArchitecture: %s\n",
		s.Codename, s.Version, origin, a.label, arch)
}

// writeIndex writes an index file and a gzip-compressed copy alongside.
func writeIndex(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}

	f, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		return err
	}
	return zw.Close()
}
