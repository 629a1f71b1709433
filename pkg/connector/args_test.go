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
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestQuote(t *testing.T) {
	var tbl = []struct {
		in, expected string
	}{
		{"", ""},
		{"example.com", "example.com"},
		{"http://x.com/a?b=c d", "http%3A//x.com/a%3Fb%3Dc%20d"},
		{"a~b_c-d.e/f", "a~b_c-d.e/f"},
		{"ü&+", "%C3%BC%26%2B"},
	}
	for _, tt := range tbl {
		if actual := Quote(tt.in); actual != tt.expected {
			t.Errorf("Quote(%q): expected %q, got %q", tt.in, tt.expected, actual)
		}
	}
}

func TestPathSegment(t *testing.T) {
	tbl := []struct {
		in       string
		expected string
	}{
		{"a.com,b.com", "a.com,b.com"},
		{"+15551234567", "+15551234567"},
		{"a/b?c#d%e", "a%2Fb%3Fc%23d%25e"},
		{"abc 123", "abc%20123"},
		{"k=v;x:y@z!$&'()*", "k=v;x:y@z!$&'()*"},
	}
	for _, tt := range tbl {
		if actual := PathSegment(tt.in); actual != tt.expected {
			t.Errorf("PathSegment(%q): expected %q, got %q", tt.in, tt.expected, actual)
		}
	}
}

func TestParseArgs(t *testing.T) {
	op, _ := Lookup("twilio_usage_report")

	args, err := ParseArgs(op, []string{"2024-01-01", "2024-01-31"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(args, Args{"start_date": "2024-01-01", "end_date": "2024-01-31"}) {
		t.Errorf("unexpected args %v", args)
	}

	// named arguments are taken first, positionals fill the rest in order
	args, err = ParseArgs(op, []string{"end_date=2024-02-01", "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(args, Args{"start_date": "2024-01-01", "end_date": "2024-02-01"}) {
		t.Errorf("unexpected args %v", args)
	}

	_, err = ParseArgs(op, []string{"a", "b", "c"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	// query strings containing '=' are positional unless they start with a name
	us, _ := Lookup("urlscan_search")
	args, err = ParseArgs(us, []string{"page.url:\"a=b\"", "size=10"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(args, Args{"query": "page.url:\"a=b\"", "size": "10"}) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestDataPackages(t *testing.T) {
	if err := validateDataPackages(""); err != nil {
		t.Error(err)
	}
	if err := validateDataPackages(strings.Join(DataPackages, ",")); err != nil {
		t.Error(err)
	}
	err := validateDataPackages("validation, nope,caller_name,meh")
	if err == nil || !strings.HasPrefix(err.Error(), `"meh, nope" are not valid data packages`) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, loc)
	if d := today(now); d != "2024-04-30" {
		t.Errorf("expected GMT date 2024-04-30, got %s", d)
	}
	if validateDate("2024-02-30") == nil {
		t.Error("expected invalid date")
	}
}
