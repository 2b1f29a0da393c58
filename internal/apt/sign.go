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

package apt

import (
	"context"

	"github.com/pop-os/ci/internal/errors"
	"github.com/pop-os/ci/internal/toolutil"
)

// sign produces the three signed artifacts next to dists Release: a
// clear-signed InRelease, a detached armored Release.gpg, and the
// exported public Key.gpg. Any gpg failure is fatal for the run.
func (a *Assembler) sign(ctx context.Context, distDir, signer string) error {
	const op errors.Op = "apt.sign"

	gpg, err := toolutil.NewRunner("gpg", distDir)
	if err != nil {
		return errors.E(op, err)
	}

	common := []string{"--batch", "--yes", "--digest-algo", "sha512", "--local-user", signer}

	args := append(append([]string{}, common...),
		"--clearsign", "--output", "InRelease", "Release")
	if _, err := gpg.Run(ctx, args...); err != nil {
		return errors.E(op, err)
	}

	args = append(append([]string{}, common...),
		"--armor", "--detach-sign", "--output", "Release.gpg", "Release")
	if _, err := gpg.Run(ctx, args...); err != nil {
		return errors.E(op, err)
	}

	if _, err := gpg.Run(ctx, "--batch", "--yes", "--armor",
		"--output", "Key.gpg", "--export", signer); err != nil {
		return errors.E(op, err)
	}
	return nil
}
