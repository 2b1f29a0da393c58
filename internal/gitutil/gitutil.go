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

// Package gitutil extracts per-commit snapshots from repository working
// copies through the git command line.
package gitutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/toolutil"
	"github.com/pop-os/ci/internal/types"
)

// Snapshot is an immutable capture of one commit: its id, author-facing
// commit time, and a tar archive of its tree. Archives are content
// addressed by commit id, so an existing archive is always reusable.
type Snapshot struct {
	// Commit is the full commit id.
	Commit string

	// Time is the commit timestamp as a unix epoch.
	Time int64

	// Date is the commit date in RFC-2822 form, suitable for a
	// debian changelog trailer line.
	Date string

	// Archive is the path of the tar archive of the commit's tree.
	Archive string
}

// NewExtractor returns an Extractor for the working copy at repoPath that
// caches archives under archiveDir.
func NewExtractor(repoPath, archiveDir string) (*Extractor, error) {
	const op errors.Op = "gitutil.NewExtractor"
	runner, err := toolutil.NewRunner("git", repoPath)
	if err != nil {
		return nil, errors.E(op, errors.Git, err)
	}
	return &Extractor{
		runner:     runner,
		repoPath:   repoPath,
		archiveDir: archiveDir,
	}, nil
}

// Extractor lists remote branch heads and archives commit trees.
type Extractor struct {
	runner     *toolutil.Runner
	repoPath   string
	archiveDir string
}

// Fetch updates all remote tracking branches.
func (e *Extractor) Fetch(ctx context.Context) error {
	const op errors.Op = "gitutil.Fetch"
	if _, err := e.runner.Run(ctx, "fetch", "--prune", "origin"); err != nil {
		return errors.E(op, types.UniquePath(e.repoPath), err)
	}
	return nil
}

var headRe = regexp.MustCompile(`^([0-9a-f]+)\s+refs/heads/(.+)$`)

// Heads lists the remote branch heads as a commit to branch-names
// relation. Several branches may point at the same commit, so the
// relation is many-to-one, not a set.
func (e *Extractor) Heads(ctx context.Context) (map[string][]string, error) {
	const op errors.Op = "gitutil.Heads"

	rr, err := e.runner.Run(ctx, "ls-remote", "--heads", "origin")
	if err != nil {
		return nil, errors.E(op, types.UniquePath(e.repoPath), err)
	}

	heads := make(map[string][]string)
	scanner := bufio.NewScanner(bytes.NewBufferString(rr.Stdout))
	for scanner.Scan() {
		res := headRe.FindStringSubmatch(scanner.Text())
		if len(res) == 0 {
			continue
		}
		heads[res[1]] = append(heads[res[1]], res[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(op, types.UniquePath(e.repoPath), err)
	}
	for _, branches := range heads {
		sort.Strings(branches)
	}
	return heads, nil
}

// Commits returns the distinct commit ids of heads in sorted order.
func Commits(heads map[string][]string) []string {
	commits := make([]string, 0, len(heads))
	for id := range heads {
		commits = append(commits, id)
	}
	sort.Strings(commits)
	return commits
}

// Snapshot produces the snapshot for one commit. The tree is archived
// with git archive directly from the commit object; no checkout happens,
// and an archive already on disk is reused as-is.
func (e *Extractor) Snapshot(ctx context.Context, commit string) (Snapshot, error) {
	const op errors.Op = "gitutil.Snapshot"

	rr, err := e.runner.Run(ctx, "log", "-1", "--format=%ct%n%cD", commit)
	if err != nil {
		return Snapshot{}, errors.E(op, types.UniquePath(e.repoPath), err)
	}
	lines := strings.SplitN(strings.TrimSpace(rr.Stdout), "\n", 2)
	if len(lines) != 2 {
		return Snapshot{}, errors.E(op, errors.Git,
			fmt.Errorf("unexpected log output for %s: %q", commit, rr.Stdout))
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	if err != nil {
		return Snapshot{}, errors.E(op, errors.Git, err)
	}

	archive, err := filepath.Abs(filepath.Join(e.archiveDir, commit+".tar"))
	if err != nil {
		return Snapshot{}, errors.E(op, errors.Internal, err)
	}
	if _, err := os.Stat(archive); err != nil {
		if _, err := e.runner.Run(ctx, "archive", "--format=tar", "-o", archive, commit); err != nil {
			return Snapshot{}, errors.E(op, types.UniquePath(e.repoPath), err)
		}
	}

	return Snapshot{
		Commit:  commit,
		Time:    ts,
		Date:    strings.TrimSpace(lines[1]),
		Archive: archive,
	}, nil
}

// EnsureRemote makes sure the named remote exists with the given URL,
// then fetches it. It is used by the sync command to mirror upstream
// Debian and Ubuntu packaging remotes.
func (e *Extractor) EnsureRemote(ctx context.Context, name, url string) error {
	const op errors.Op = "gitutil.EnsureRemote"

	rr, err := e.runner.Run(ctx, "remote")
	if err != nil {
		return errors.E(op, types.UniquePath(e.repoPath), err)
	}
	known := false
	for _, r := range strings.Fields(rr.Stdout) {
		if r == name {
			known = true
			break
		}
	}

	if known {
		_, err = e.runner.Run(ctx, "remote", "set-url", name, url)
	} else {
		_, err = e.runner.Run(ctx, "remote", "add", name, url)
	}
	if err != nil {
		return errors.E(op, types.UniquePath(e.repoPath), err)
	}

	if _, err := e.runner.Run(ctx, "fetch", name); err != nil {
		return errors.E(op, types.UniquePath(e.repoPath), err)
	}
	return nil
}
