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

package types_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/pop-os/ci/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativePath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	rel, err := UniquePath(filepath.Join(cwd, "repos", "theme")).RelativePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repos", "theme"), rel)

	// paths above the working directory stay absolute
	parent := filepath.Dir(cwd)
	rel, err = UniquePath(parent).RelativePath()
	require.NoError(t, err)
	assert.Equal(t, parent, rel)
}
