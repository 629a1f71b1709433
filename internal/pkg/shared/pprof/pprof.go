// Copyright (c) 2024 PT Defender Nusa Semesta and contributors, All rights reserved.
//
// This file is part of PPP Connectors.
//
// PPP Connectors is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation version 3 of the License.
//
// PPP Connectors is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PPP Connectors. If not, see <https://www.gnu.org/licenses/>.

package pprof

import (
	"errors"

	"github.com/pkg/profile"
)

// GetProfiler starts the named profile, writing its output under dir.
// The caller must Stop the result to flush the profile.
func GetProfiler(p string, dir string) (i interface{ Stop() }, err error) {
	opts := []func(*profile.Profile){profile.ProfilePath(dir), profile.Quiet, profile.NoShutdownHook}
	switch p {
	case "cpu":
		i = profile.Start(append(opts, profile.CPUProfile)...)
	case "memory":
		i = profile.Start(append(opts, profile.MemProfile)...)
	case "mutex":
		i = profile.Start(append(opts, profile.MutexProfile)...)
	case "block":
		i = profile.Start(append(opts, profile.BlockProfile)...)
	default:
		err = errors.New("invalid profiler, valid option is cpu|memory|mutex|block")
	}
	return
}
