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

package compare_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/pop-os/ci/internal/compare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, dir, name string, packages map[string]string) {
	t.Helper()
	var body string
	for pkg, ver := range packages {
		body += "Package: " + pkg + "\nVersion: " + ver + "\nArchitecture: amd64\n" +
			"Filename: pool/main/" + pkg + "_" + ver + "_amd64.deb\n" +
			"Size: 1\nMD5sum: 00000000000000000000000000000000\n\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestReport(t *testing.T) {
	lists := t.TempDir()
	writeIndex(t, lists,
		"archive.ubuntu.com_ubuntu_dists_bionic_main_binary-amd64_Packages",
		map[string]string{
			"gnome-shell": "3.28.1-0ubuntu2",
			"nautilus":    "1:3.26.3-0ubuntu4",
		})
	writeIndex(t, lists,
		"ppa.launchpad.net_system76_pop_ubuntu_dists_bionic_main_binary-amd64_Packages",
		map[string]string{
			"gnome-shell": "3.28.0-0ubuntu1",
			"nautilus":    "1:3.26.3-0ubuntu4",
			"pop-theme":   "0~1524736800~18.04~4bb6d45",
		})

	stale, err := Report(lists, "bionic", "ppa.launchpad.net/system76/pop")
	require.NoError(t, err)

	// only gnome-shell lags; nautilus matches and pop-theme exists
	// nowhere else
	require.Len(t, stale, 1)
	assert.Equal(t, "gnome-shell", stale[0].Package)
	assert.Equal(t, "3.28.0-0ubuntu1", stale[0].Tracked.String())
	assert.Equal(t, "3.28.1-0ubuntu2", stale[0].Newest.String())
}

func TestReportIgnoresOtherSuites(t *testing.T) {
	lists := t.TempDir()
	writeIndex(t, lists,
		"archive.ubuntu.com_ubuntu_dists_artful_main_binary-amd64_Packages",
		map[string]string{"gnome-shell": "3.28.9-0ubuntu9"})
	writeIndex(t, lists,
		"ppa.launchpad.net_system76_pop_ubuntu_dists_bionic_main_binary-amd64_Packages",
		map[string]string{"gnome-shell": "3.28.0-0ubuntu1"})

	stale, err := Report(lists, "bionic", "ppa.launchpad.net/system76/pop")
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestReportMissingDir(t *testing.T) {
	_, err := Report(filepath.Join(t.TempDir(), "absent"), "bionic", "x")
	assert.Error(t, err)
}
