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

// Package compare reports packages whose tracked-origin version lags
// behind the newest version a suite carries. It only reads downloaded
// apt index files and never touches the build pipeline.
package compare

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pop-os/ci/internal/errors"
	"pault.ag/go/debian/control"
	"pault.ag/go/debian/version"
)

// Stale is one package where the tracked origin lags the suite.
type Stale struct {
	Package string
	Tracked version.Version
	Newest  version.Version
}

// Report scans the binary Packages indices under listsDir (the apt lists
// directory layout, where path separators in the index URL become
// underscores) for the given suite. Indices whose filename starts with
// origin are the tracked origin; a package is stale when the tracked
// origin's newest version compares older than the newest version any
// index in the suite carries.
func Report(listsDir, suite, origin string) ([]Stale, error) {
	const op errors.Op = "compare.Report"

	entries, err := os.ReadDir(listsDir)
	if err != nil {
		return nil, errors.E(op, errors.MissingParam, err)
	}

	originKey := strings.ReplaceAll(origin, "/", "_")
	suiteKey := "_dists_" + suite + "_"

	newest := make(map[string]version.Version)
	tracked := make(map[string]version.Version)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "_Packages") || !strings.Contains(name, suiteKey) {
			continue
		}

		index, err := parseIndex(filepath.Join(listsDir, name))
		if err != nil {
			return nil, errors.E(op, err)
		}

		fromOrigin := strings.HasPrefix(name, originKey)
		for _, bin := range index {
			if cur, ok := newest[bin.Package]; !ok || version.Compare(bin.Version, cur) > 0 {
				newest[bin.Package] = bin.Version
			}
			if fromOrigin {
				if cur, ok := tracked[bin.Package]; !ok || version.Compare(bin.Version, cur) > 0 {
					tracked[bin.Package] = bin.Version
				}
			}
		}
	}

	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var stale []Stale
	for _, name := range names {
		if version.Compare(tracked[name], newest[name]) < 0 {
			stale = append(stale, Stale{
				Package: name,
				Tracked: tracked[name],
				Newest:  newest[name],
			})
		}
	}
	return stale, nil
}

func parseIndex(path string) ([]control.BinaryIndex, error) {
	const op errors.Op = "compare.parseIndex"

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	defer f.Close()

	index, err := control.ParseBinaryIndex(bufio.NewReader(f))
	if err != nil {
		return nil, errors.E(op, errors.Parse, err)
	}
	return index, nil
}
