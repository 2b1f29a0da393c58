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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pop-os/ci/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repos:
  - shell
series:
  cosmic: "18.10"
buildArch: arm64
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"shell"}, cfg.Repos)
	assert.Equal(t, "arm64", cfg.BuildArch)
	// a provided map replaces the default wholesale, it is not merged
	// into the default entries
	assert.Equal(t, series.Table{"cosmic": "18.10"}, cfg.Series)
	// untouched fields keep their defaults
	assert.Equal(t, "_build", cfg.BuildRoot)
	assert.Equal(t, "pop-os-staging", cfg.Origin)
	assert.Equal(t, Default().Upstreams, cfg.Upstreams)
}

func TestLoadReplacesUpstreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstreams:
  shell: https://git.launchpad.net/ubuntu/+source/gnome-shell
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"shell": "https://git.launchpad.net/ubuntu/+source/gnome-shell",
	}, cfg.Upstreams)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSelected(t *testing.T) {
	cfg := &Config{
		Repos: []string{"desktop", "ci", "theme"},
		Skip:  []string{"ci"},
	}

	testCases := map[string]struct {
		args     []string
		expected []string
	}{
		"no args yields the configured list minus skips": {
			expected: []string{"desktop", "theme"},
		},
		"explicit args override the skip list": {
			args:     []string{"ci"},
			expected: []string{"ci"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, cfg.Selected(tc.args))
		})
	}
}

func TestSigningIdentity(t *testing.T) {
	t.Setenv(DebEmailEnv, "michael@pop-os.org")
	email, err := SigningIdentity()
	assert.NoError(t, err)
	assert.Equal(t, "michael@pop-os.org", email)

	t.Setenv(DebEmailEnv, "")
	_, err = SigningIdentity()
	assert.Error(t, err)
}
