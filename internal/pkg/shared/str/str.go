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

package str

import (
	"sort"
	"strings"
)

// AppendUniq append string to slice if it its not there yet
func AppendUniq(slice []string, i string) []string {
	for _, ele := range slice {
		if ele == i {
			return slice
		}
	}
	return append(slice, i)
}

// CsvToSlice convert s to []string; where s is in the form of "string, string,string".
// Entries are trimmed and empty ones dropped.
func CsvToSlice(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeCSV rewrites s as a comma separated list without blanks or empty entries
func NormalizeCSV(s string) string {
	return strings.Join(CsvToSlice(s), ",")
}

// UniqSorted returns the distinct elements in ascending order
func UniqSorted(elements []string) []string {
	result := []string{}
	for _, v := range elements {
		result = AppendUniq(result, v)
	}
	sort.Strings(result)
	return result
}
