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

// Package series models distribution series, pockets, and the branch
// naming convention that maps git branches onto them.
package series

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pop-os/ci/internal/errors"
)

// Series is a named distribution release target, e.g. bionic/18.04.
type Series struct {
	Codename string
	Version  string
}

func (s Series) String() string {
	return s.Codename
}

// Pocket identifies a logical sub-repository within the output tree,
// e.g. "release" or "proposed".
type Pocket string

// Table maps series codenames to release versions. It is passed into the
// parser explicitly so tests and configs can substitute their own.
type Table map[string]string

// Codenames returns the table's codenames in sorted order.
func (t Table) Codenames() []string {
	names := make([]string, 0, len(t))
	for c := range t {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Get resolves a codename against the table.
func (t Table) Get(codename string) (Series, error) {
	const op errors.Op = "series.Get"
	v, ok := t[codename]
	if !ok {
		return Series{}, errors.E(op, errors.InvalidParam,
			fmt.Errorf("unknown series codename %q", codename))
	}
	return Series{Codename: codename, Version: v}, nil
}

// Target is one (series, pocket) pair a branch resolves to.
type Target struct {
	Series Series
	Pocket Pocket
}

// branchDelim separates the pocket from the optional codename suffix in a
// branch name, e.g. "proposed_bionic".
const branchDelim = "_"

// ParseBranch resolves a branch name to its build targets.
//
// A bare pocket ("release") fans out to every series in the table, sorted
// by codename for determinism. A suffixed branch ("release_bionic")
// resolves to exactly the named series. More than one delimiter is a
// malformed branch name.
func ParseBranch(table Table, branch string) ([]Target, error) {
	const op errors.Op = "series.ParseBranch"

	parts := strings.Split(branch, branchDelim)
	if len(parts) > 2 {
		return nil, errors.E(op, errors.Parse,
			fmt.Errorf("malformed branch name %q: more than one %q", branch, branchDelim))
	}

	pocket := Pocket(parts[0])
	if len(parts) == 2 {
		s, err := table.Get(parts[1])
		if err != nil {
			return nil, errors.E(op, err)
		}
		return []Target{{Series: s, Pocket: pocket}}, nil
	}

	targets := make([]Target, 0, len(table))
	for _, codename := range table.Codenames() {
		targets = append(targets, Target{
			Series: Series{Codename: codename, Version: table[codename]},
			Pocket: pocket,
		})
	}
	return targets, nil
}

// GroupBySeries groups targets into a mapping from series to the set of
// pockets that want it.
func GroupBySeries(targets []Target) map[Series]map[Pocket]bool {
	grouped := make(map[Series]map[Pocket]bool)
	for _, t := range targets {
		if grouped[t.Series] == nil {
			grouped[t.Series] = make(map[Pocket]bool)
		}
		grouped[t.Series][t.Pocket] = true
	}
	return grouped
}

// PocketSeriesMap accumulates, across repositories, which series each
// pocket ended up containing. It is the sole input to the final dist
// metadata pass.
type PocketSeriesMap map[Pocket]map[Series]bool

// Add records that the pocket contains the series.
func (m PocketSeriesMap) Add(p Pocket, s Series) {
	if m[p] == nil {
		m[p] = make(map[Series]bool)
	}
	m[p][s] = true
}

// Merge unions other into m. A pocket/series pair contributed by any
// repository is retained exactly once.
func (m PocketSeriesMap) Merge(other PocketSeriesMap) {
	for p, set := range other {
		for s := range set {
			m.Add(p, s)
		}
	}
}

// Pockets returns the pockets in sorted order.
func (m PocketSeriesMap) Pockets() []Pocket {
	pockets := make([]Pocket, 0, len(m))
	for p := range m {
		pockets = append(pockets, p)
	}
	sort.Slice(pockets, func(i, j int) bool { return pockets[i] < pockets[j] })
	return pockets
}

// SeriesFor returns the pocket's series sorted by codename.
func (m PocketSeriesMap) SeriesFor(p Pocket) []Series {
	all := make([]Series, 0, len(m[p]))
	for s := range m[p] {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Codename < all[j].Codename })
	return all
}
