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

// Package config holds the run configuration for the ci pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/series"
	"gopkg.in/yaml.v3"
)

// DebEmailEnv is the environment variable naming the GPG signing
// identity. It is required for the build pipeline.
const DebEmailEnv = "DEBEMAIL"

// Config is the full run configuration. Defaults cover the staging
// archive; any field can be overridden from a YAML file.
type Config struct {
	// Repos are the repositories built when none are named on the
	// command line.
	Repos []string `yaml:"repos"`

	// Skip lists repositories excluded from an unrestricted run.
	Skip []string `yaml:"skip"`

	// Series is the codename to release-version table branch names
	// resolve against.
	Series series.Table `yaml:"series"`

	// Upstreams maps repository names to the upstream git URL the sync
	// command mirrors from.
	Upstreams map[string]string `yaml:"upstreams"`

	// RepoRoot is the directory containing the repository working copies.
	RepoRoot string `yaml:"repoRoot"`

	// BuildRoot is the root of the generated _build tree.
	BuildRoot string `yaml:"buildRoot"`

	// BuildArch is the single architecture binaries are built for.
	// Architecture-independent packages keep "all".
	BuildArch string `yaml:"buildArch"`

	// ExtraRepo is the apt source line template injected into sbuild so
	// build dependencies resolve against the staging archive itself.
	// %s is replaced with the series codename.
	ExtraRepo string `yaml:"extraRepo"`

	// ExtraRepoKey is the path of the signing key for ExtraRepo.
	ExtraRepoKey string `yaml:"extraRepoKey"`

	// Maintainer is the automation identity synthesized changelog
	// entries are attributed to.
	Maintainer string `yaml:"maintainer"`

	// Origin is the archive origin prefix; the pocket name is appended,
	// e.g. pop-os-staging-release.
	Origin string `yaml:"origin"`

	// Label is the human readable archive label.
	Label string `yaml:"label"`
}

// Default returns the staging archive configuration.
func Default() *Config {
	return &Config{
		Repos: []string{
			"desktop",
			"default-settings",
			"fonts",
			"gnome-control-center",
			"icon-theme",
			"session",
			"theme",
			"wallpapers",
		},
		Skip: []string{
			"ci",
			"docs",
			"iso",
		},
		Series: series.Table{
			"artful": "17.10",
			"bionic": "18.04",
		},
		// only forks of upstream packaging carry a sync remote; native
		// repositories are skipped by the sync command
		Upstreams: map[string]string{
			"gnome-control-center": "https://git.launchpad.net/ubuntu/+source/gnome-control-center",
		},
		RepoRoot:     ".",
		BuildRoot:    "_build",
		BuildArch:    "amd64",
		ExtraRepo:    "deb http://apt.pop-os.org/staging-ubuntu %s main",
		ExtraRepoKey: "scripts/.iso.asc",
		Maintainer:   "Pop Launchpad <launchpad@system76.com>",
		Origin:       "pop-os-staging",
		Label:        "Pop!_OS Staging",
	}
}

// Load reads a YAML file over the defaults. Fields the document sets
// replace the default value wholesale; in particular a provided series
// or upstreams map is not merged with the default entries.
func Load(path string) (*Config, error) {
	const op errors.Op = "config.Load"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.MissingParam, err)
	}
	// decoding straight into Default() would merge map fields, so the
	// document goes into a zero Config first
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	cfg := Default()
	cfg.apply(&overlay)
	return cfg, nil
}

// apply copies every field the overlay provides onto c.
func (c *Config) apply(o *Config) {
	if o.Repos != nil {
		c.Repos = o.Repos
	}
	if o.Skip != nil {
		c.Skip = o.Skip
	}
	if o.Series != nil {
		c.Series = o.Series
	}
	if o.Upstreams != nil {
		c.Upstreams = o.Upstreams
	}
	if o.RepoRoot != "" {
		c.RepoRoot = o.RepoRoot
	}
	if o.BuildRoot != "" {
		c.BuildRoot = o.BuildRoot
	}
	if o.BuildArch != "" {
		c.BuildArch = o.BuildArch
	}
	if o.ExtraRepo != "" {
		c.ExtraRepo = o.ExtraRepo
	}
	if o.ExtraRepoKey != "" {
		c.ExtraRepoKey = o.ExtraRepoKey
	}
	if o.Maintainer != "" {
		c.Maintainer = o.Maintainer
	}
	if o.Origin != "" {
		c.Origin = o.Origin
	}
	if o.Label != "" {
		c.Label = o.Label
	}
}

// SigningIdentity returns the GPG identity from DEBEMAIL, failing when it
// is unset or empty.
func SigningIdentity() (string, error) {
	const op errors.Op = "config.SigningIdentity"
	email := os.Getenv(DebEmailEnv)
	if email == "" {
		return "", errors.E(op, errors.MissingParam,
			fmt.Errorf("%s must be set to the GPG signing identity", DebEmailEnv))
	}
	return email, nil
}

// GitDir returns the snapshot cache directory.
func (c *Config) GitDir() string { return filepath.Join(c.BuildRoot, "git") }

// SourceDir returns the source package output directory.
func (c *Config) SourceDir() string { return filepath.Join(c.BuildRoot, "source") }

// BinaryDir returns the binary package output directory.
func (c *Config) BinaryDir() string { return filepath.Join(c.BuildRoot, "binary") }

// RepoDir returns the root of the assembled apt repositories.
func (c *Config) RepoDir() string { return filepath.Join(c.BuildRoot, "repos") }

// Selected resolves the repository list for a run: explicit names win,
// otherwise the configured list minus the skip list.
func (c *Config) Selected(names []string) []string {
	if len(names) > 0 {
		return names
	}
	skip := make(map[string]bool, len(c.Skip))
	for _, s := range c.Skip {
		skip[s] = true
	}
	var repos []string
	for _, r := range c.Repos {
		if !skip[r] {
			repos = append(repos, r)
		}
	}
	return repos
}
