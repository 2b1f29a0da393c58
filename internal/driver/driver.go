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

// Package driver iterates the configured repositories, runs the
// per-repository pipeline, and generates the final dists metadata from
// the accumulated pocket to series mapping.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	stderrors "errors"

	"github.com/pop-os/ci/internal/apt"
	"github.com/pop-os/ci/internal/binary"
	"github.com/pop-os/ci/internal/config"
	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/gitutil"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/internal/source"
	"github.com/pop-os/ci/internal/types"
	"github.com/pop-os/ci/pkg/printer"
	"k8s.io/klog/v2"
)

// New prepares the _build tree and wires up the pipeline stages. signer
// is the GPG identity the dists metadata is signed with.
func New(cfg *config.Config, signer string) (*Driver, error) {
	const op errors.Op = "driver.New"

	for _, dir := range []string{cfg.GitDir(), cfg.SourceDir(), cfg.BinaryDir(), cfg.RepoDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.E(op, errors.Internal, err)
		}
	}

	packager, err := source.NewPackager(cfg.SourceDir(), cfg.Maintainer)
	if err != nil {
		return nil, errors.E(op, err)
	}

	return &Driver{
		cfg:       cfg,
		signer:    signer,
		packager:  packager,
		builder:   binary.NewBuilder(cfg.BinaryDir(), cfg.BuildArch, cfg.ExtraRepo, cfg.ExtraRepoKey),
		assembler: apt.NewAssembler(cfg.RepoDir(), cfg.BuildArch, cfg.Origin, cfg.Label),
	}, nil
}

// Driver runs the whole build pipeline.
type Driver struct {
	cfg       *config.Config
	signer    string
	packager  *source.Packager
	builder   *binary.Builder
	assembler *apt.Assembler
}

// Run builds the selected repositories and then generates dists metadata
// once per accumulated (pocket, series) pair. The first stage failure
// aborts the run; already staged pool directories are left behind.
func (d *Driver) Run(ctx context.Context, repos []string) error {
	const op errors.Op = "driver.Run"
	pr := printer.FromContextOrDie(ctx)

	global := series.PocketSeriesMap{}
	for _, repo := range d.cfg.Selected(repos) {
		produced, err := d.buildRepo(ctx, repo)
		if err != nil {
			return errors.E(op, err)
		}
		global.Merge(produced)
	}

	for _, pocket := range global.Pockets() {
		for _, s := range global.SeriesFor(pocket) {
			pr.OptPrintf(printer.NewOpt().For(s.Codename).In("dist"),
				"generating %s metadata\n", pocket)
			if err := d.assembler.Dist(ctx, pocket, s, d.signer); err != nil {
				return errors.E(op, err)
			}
		}
	}
	return nil
}

// buildRepo runs the per-repository pipeline and reports which series
// ended up in which pocket. A missing working copy yields an empty
// result and the repository is skipped.
func (d *Driver) buildRepo(ctx context.Context, repo string) (series.PocketSeriesMap, error) {
	const op errors.Op = "driver.buildRepo"
	pr := printer.FromContextOrDie(ctx)

	produced := series.PocketSeriesMap{}

	repoPath := filepath.Join(d.cfg.RepoRoot, repo)
	if info, err := os.Stat(repoPath); err != nil || !info.IsDir() {
		pr.OptPrintf(printer.NewOpt().Pkg(repo), "no working copy at %s, skipping\n", displayPath(repoPath))
		return produced, nil
	}

	extractor, err := gitutil.NewExtractor(repoPath, d.cfg.GitDir())
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := extractor.Fetch(ctx); err != nil {
		return nil, errors.E(op, err)
	}
	heads, err := extractor.Heads(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}

	for _, commit := range gitutil.Commits(heads) {
		snap, err := extractor.Snapshot(ctx, commit)
		if err != nil {
			return nil, errors.E(op, err)
		}

		var targets []series.Target
		for _, branch := range heads[commit] {
			branchTargets, err := series.ParseBranch(d.cfg.Series, branch)
			if err != nil {
				return nil, errors.E(op, err)
			}
			targets = append(targets, branchTargets...)
		}

		grouped := series.GroupBySeries(targets)
		for _, s := range sortedSeries(grouped) {
			opt := printer.NewOpt().Pkg(repo).At(commit).For(s.Codename)

			pr.OptPrintf(opt.In("source"), "building source package\n")
			src, err := d.packager.Build(ctx, repo, snap, s)
			if err != nil {
				if stderrors.Is(err, source.ErrNotPackageable) {
					pr.OptPrintf(opt.In("source"), "not packageable, skipping\n")
					continue
				}
				return nil, errors.E(op, err)
			}

			pr.OptPrintf(opt.In("sbuild"), "building %s\n", src.Name)
			debs, err := d.builder.Build(ctx, src.Dsc, s)
			if err != nil {
				return nil, errors.E(op, err)
			}
			klog.V(2).Infof("%s %s: %d binary artifacts", repo, s.Codename, len(debs))

			for _, pocket := range sortedPockets(grouped[s]) {
				pr.OptPrintf(opt.In("pool"), "staging into %s\n", pocket)
				if err := d.assembler.Pool(ctx, repo, src, debs, s, pocket); err != nil {
					return nil, errors.E(op, err)
				}
				produced.Add(pocket, s)
			}
		}
	}
	return produced, nil
}

// displayPath shortens an absolute repository path to one relative to
// the working directory for skip messages.
func displayPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := types.UniquePath(abs).RelativePath()
	if err != nil {
		return path
	}
	return rel
}

func sortedSeries(grouped map[series.Series]map[series.Pocket]bool) []series.Series {
	all := make([]series.Series, 0, len(grouped))
	for s := range grouped {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Codename < all[j].Codename })
	return all
}

func sortedPockets(set map[series.Pocket]bool) []series.Pocket {
	pockets := make([]series.Pocket, 0, len(set))
	for p := range set {
		pockets = append(pockets, p)
	}
	sort.Slice(pockets, func(i, j int) bool { return pockets[i] < pockets[j] })
	return pockets
}
