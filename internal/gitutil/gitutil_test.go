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

package gitutil_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	. "github.com/pop-os/ci/internal/gitutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=ci test",
		"GIT_AUTHOR_EMAIL=ci@localhost",
		"GIT_COMMITTER_NAME=ci test",
		"GIT_COMMITTER_EMAIL=ci@localhost",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

// testRepo creates a repository with one commit on the "release" branch
// and an "origin" remote pointing back at itself.
func testRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "release")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ci test\n"), 0600))
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-m", "initial")
	runGit(t, dir, "remote", "add", "origin", dir)
	return dir
}

func TestHeads(t *testing.T) {
	dir := testRepo(t)
	runGit(t, dir, "branch", "proposed_bionic")

	e, err := NewExtractor(dir, t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Fetch(ctx))

	heads, err := e.Heads(ctx)
	require.NoError(t, err)

	// both branches point at the single commit, so the relation is
	// many-to-one
	commits := Commits(heads)
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"proposed_bionic", "release"}, heads[commits[0]])
}

func TestSnapshot(t *testing.T) {
	dir := testRepo(t)
	archiveDir := t.TempDir()

	e, err := NewExtractor(dir, archiveDir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Fetch(ctx))
	heads, err := e.Heads(ctx)
	require.NoError(t, err)
	commits := Commits(heads)
	require.Len(t, commits, 1)

	snap, err := e.Snapshot(ctx, commits[0])
	require.NoError(t, err)

	assert.Equal(t, commits[0], snap.Commit)
	assert.Greater(t, snap.Time, int64(0))
	assert.NotEmpty(t, snap.Date)
	info, err := os.Stat(snap.Archive)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSnapshotReusesArchive(t *testing.T) {
	dir := testRepo(t)
	archiveDir := t.TempDir()

	e, err := NewExtractor(dir, archiveDir)
	require.NoError(t, err)

	ctx := context.Background()
	heads, err := e.Heads(ctx)
	require.NoError(t, err)
	commit := Commits(heads)[0]

	// pre-seed the archive; commits are immutable so an existing
	// archive must never be rewritten
	marker := []byte("marker")
	archive := filepath.Join(archiveDir, commit+".tar")
	require.NoError(t, os.WriteFile(archive, marker, 0600))

	snap, err := e.Snapshot(ctx, commit)
	require.NoError(t, err)

	content, err := os.ReadFile(snap.Archive)
	require.NoError(t, err)
	assert.Equal(t, marker, content)
}

func TestEnsureRemote(t *testing.T) {
	dir := testRepo(t)
	upstream := testRepo(t)

	e, err := NewExtractor(dir, t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.EnsureRemote(ctx, "upstream", upstream))
	// idempotent when the remote already exists
	require.NoError(t, e.EnsureRemote(ctx, "upstream", upstream))

	out := runGit(t, dir, "remote", "get-url", "upstream")
	assert.Contains(t, out, upstream)
}
