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

package idgen

import (
	"strings"

	"github.com/teris-io/shortid"
)

var sid = shortid.MustNew(1, shortid.DefaultABC, 2342)

// GenerateID creates random shortid
func GenerateID() (id string, err error) {
	return sid.Generate()
}

// RequestID returns an ID for tagging the log lines of one outbound request.
// Leading dashes are trimmed so the ID can be pasted into CLI filters.
func RequestID() string {
	id, err := GenerateID()
	if err != nil {
		return "-"
	}
	if t := strings.TrimLeft(id, "-"); t != "" {
		return t
	}
	return id
}
