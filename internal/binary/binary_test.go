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

package binary_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/pop-os/ci/internal/binary"
	"github.com/pop-os/ci/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pault.ag/go/debian/control"
)

const dscTemplate = `Format: 3.0 (native)
Source: pop-theme
Binary: pop-gtk-theme, pop-icon-theme
Architecture: %s
Version: 0~1524736800~18.04~4bb6d45
Maintainer: Pop Launchpad <launchpad@system76.com>
Standards-Version: 4.1.1
Files:
 00000000000000000000000000000000 1 pop-theme_0~1524736800~18.04~4bb6d45.tar.xz
`

func writeDsc(t *testing.T, dir, arch string) string {
	t.Helper()
	path := filepath.Join(dir, "pop-theme_0~1524736800~18.04~4bb6d45.dsc")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(dscTemplate, arch)), 0644))
	return path
}

func TestExpected(t *testing.T) {
	testCases := map[string]struct {
		arch         string
		expectedArch string
	}{
		"architecture independent stays all": {
			arch:         "all",
			expectedArch: "all",
		},
		"any is forced to the build architecture": {
			arch:         "any",
			expectedArch: "amd64",
		},
		"a foreign architecture is forced to the build architecture": {
			arch:         "arm64",
			expectedArch: "amd64",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			binaryDir := t.TempDir()
			dscPath := writeDsc(t, t.TempDir(), tc.arch)
			dsc, err := control.ParseDscFile(dscPath)
			require.NoError(t, err)

			b := NewBuilder(binaryDir, "amd64", "deb http://example.com %s main", "key.asc")
			debs := b.Expected(dsc)

			assert.Equal(t, []string{
				filepath.Join(binaryDir, "pop-gtk-theme_0~1524736800~18.04~4bb6d45_"+tc.expectedArch+".deb"),
				filepath.Join(binaryDir, "pop-icon-theme_0~1524736800~18.04~4bb6d45_"+tc.expectedArch+".deb"),
			}, debs)
		})
	}
}

func TestBuildSkipsWhenArtifactsExist(t *testing.T) {
	binaryDir := t.TempDir()
	dscPath := writeDsc(t, t.TempDir(), "all")

	for _, bin := range []string{"pop-gtk-theme", "pop-icon-theme"} {
		deb := filepath.Join(binaryDir, bin+"_0~1524736800~18.04~4bb6d45_all.deb")
		require.NoError(t, os.WriteFile(deb, []byte("seeded"), 0644))
	}

	// sbuild is never resolved on the skip path, so this passes even on
	// hosts without it
	b := NewBuilder(binaryDir, "amd64", "deb http://example.com %s main", "key.asc")
	debs, err := b.Build(context.Background(), dscPath, series.Series{Codename: "bionic", Version: "18.04"})
	require.NoError(t, err)

	assert.Len(t, debs, 2)
	for _, deb := range debs {
		content, err := os.ReadFile(deb)
		require.NoError(t, err)
		assert.Equal(t, "seeded", string(content))
	}
}
