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

package driver_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pop-os/ci/internal/config"
	. "github.com/pop-os/ci/internal/driver"
	"github.com/pop-os/ci/internal/series"
	"github.com/pop-os/ci/pkg/printer/fake"
	"gotest.tools/assert"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RepoRoot = t.TempDir()
	cfg.BuildRoot = filepath.Join(t.TempDir(), "_build")
	cfg.Repos = []string{"app"}
	cfg.Series = series.Table{"bionic": "18.04"}
	return cfg
}

func runGit(t *testing.T, dir string, args ...string) {
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
	assert.NilError(t, err, "git %v: %s", args, out)
}

func TestRunSkipsMissingWorkingCopy(t *testing.T) {
	cfg := testConfig(t)

	d, err := New(cfg, "ci@localhost")
	assert.NilError(t, err)

	var progress bytes.Buffer
	ctx := fake.CtxWithPrinter(&progress, &progress)
	assert.NilError(t, d.Run(ctx, nil))

	assert.Assert(t, strings.Contains(progress.String(), "no working copy"),
		"progress output: %q", progress.String())

	// nothing was produced, so no pocket directories exist
	entries, err := os.ReadDir(cfg.RepoDir())
	assert.NilError(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestRunSkipsUnpackageableRepo(t *testing.T) {
	cfg := testConfig(t)

	// a repository with a release branch but no debian/ directory
	repo := filepath.Join(cfg.RepoRoot, "app")
	assert.NilError(t, os.MkdirAll(repo, 0755))
	runGit(t, repo, "init", "-b", "release")
	assert.NilError(t, os.WriteFile(filepath.Join(repo, "main.c"), []byte("int main(){}\n"), 0644))
	runGit(t, repo, "add", "main.c")
	runGit(t, repo, "commit", "-m", "initial")
	runGit(t, repo, "remote", "add", "origin", repo)

	d, err := New(cfg, "ci@localhost")
	assert.NilError(t, err)

	ctx := fake.CtxWithDefaultPrinter()
	assert.NilError(t, d.Run(ctx, nil))

	// the snapshot was cached even though packaging was skipped
	archives, err := os.ReadDir(cfg.GitDir())
	assert.NilError(t, err)
	assert.Equal(t, 1, len(archives))

	entries, err := os.ReadDir(cfg.RepoDir())
	assert.NilError(t, err)
	assert.Equal(t, 0, len(entries))
}
