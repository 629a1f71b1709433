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

package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kardianos/osext"
)

// FileExist check if path exist
func FileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetDir returns the program root directory
func GetDir(devEnv bool) (string, error) {
	dir, err := osext.ExecutableFolder()
	if devEnv {
		keyword := "ppp-connectors"
		wd, _ := os.Getwd()
		if i := strings.Index(wd, keyword); i > -1 {
			dir = wd[:i+len(keyword)]
		}
	}
	return dir, err
}

// FindUp looks for a regular file called name in dir and each of its parents,
// returning the first match or an empty string.
func FindUp(name, dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// FindFile returns the path of name found by FindUp from start, falling back
// to the executable directory.
func FindFile(name, start string) string {
	if p := FindUp(name, start); p != "" {
		return p
	}
	dir, err := osext.ExecutableFolder()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, name)
	if !FileExist(p) {
		return ""
	}
	return p
}
