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

package connector

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/str"
)

// Args holds caller arguments by name.
type Args map[string]string

const dateLayout = "2006-01-02"

var namedArg = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// ParseArgs turns command line tokens into Args for op. Tokens of the form
// name=value are named; any other token fills the next declared parameter not
// given by name.
func ParseArgs(op Operation, tokens []string) (Args, error) {
	args := Args{}
	var positional []string
	for _, tok := range tokens {
		if m := namedArg.FindStringSubmatch(tok); m != nil {
			args[m[1]] = m[2]
			continue
		}
		positional = append(positional, tok)
	}
	for _, p := range op.Params {
		if len(positional) == 0 {
			break
		}
		if _, ok := args[p.Name]; ok {
			continue
		}
		args[p.Name] = positional[0]
		positional = positional[1:]
	}
	if len(positional) > 0 {
		return nil, &ValidationError{Operation: op.Name,
			Reason: "too many positional arguments: " + strings.Join(positional, " ")}
	}
	return args, nil
}

// segmentSafe are the sub-delims and pchar extras a path segment may carry
// unencoded.
const segmentSafe = "!$&'()*+,;=:@"

// Quote percent-encodes s, leaving letters, digits, "_.-~" and "/" intact.
func Quote(s string) string {
	return quote(s, "/")
}

// PathSegment encodes s as one path segment. Sub-delims such as the commas of
// a domain list are kept, "/", "?", "#" and "%" are encoded.
func PathSegment(s string) string {
	return quote(s, segmentSafe)
}

func quote(s, safe string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '_', c == '.', c == '-', c == '~', strings.IndexByte(safe, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
		}
	}
	return b.String()
}

func empty(time.Time) string {
	return ""
}

func today(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

func validateDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("%q does not match the format YYYY-MM-DD", s)
	}
	return nil
}

// DataPackages lists the valid Twilio Lookup data packages.
var DataPackages = []string{
	"call_forwarding",
	"caller_name",
	"identity_match",
	"line_status",
	"line_type_intelligence",
	"phone_number_quality_score",
	"pre_fill",
	"reassigned_number",
	"sim_swap",
	"sms_pumping_risk",
	"validation",
}

func validateDataPackages(s string) error {
	valid := make(map[string]bool, len(DataPackages))
	for _, p := range DataPackages {
		valid[p] = true
	}
	var invalid []string
	for _, p := range str.CsvToSlice(s) {
		if !valid[p] {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return errors.New(`"` + strings.Join(invalid, ", ") + `" are not valid data packages, valid packages include ` +
		strings.Join(DataPackages, ", "))
}
