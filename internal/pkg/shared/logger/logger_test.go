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

package logger

import (
	"strings"
	"testing"
)

func TestLog(t *testing.T) {

	if err := Setup(false); err != nil {
		t.Fatal(err)
	}
	Debug(M{})

	if err := Setup(true); err != nil {
		t.Fatal(err)
	}

	msgs := []M{
		{Msg: "test"},
		{Msg: "test", Op: "urlscan_search"},
		{Msg: "test", RId: "abc"},
		{Msg: "test", Op: "urlscan_search", RId: "abc"},
	}

	for _, m := range msgs {
		EnableTestingMode()
		o := CaptureZapOutput(func() {
			Info(m)
		})
		if !strings.Contains(o, "INFO") {
			t.Fatal("Cannot find string in output, o: " + o)
		}
		if m.Op != "" && !strings.Contains(o, m.Op) {
			t.Fatal("Cannot find operation in output, o: " + o)
		}
		if m.RId != "" && !strings.Contains(o, m.RId) {
			t.Fatal("Cannot find request ID in output, o: " + o)
		}
		o = CaptureZapOutput(func() {
			Warn(m)
		})
		if !strings.Contains(o, "WARN") {
			t.Fatal("Cannot find string in output, o: " + o)
		}
		o = CaptureZapOutput(func() {
			Debug(m)
		})
		if !strings.Contains(o, "DEBUG") {
			t.Fatal("Cannot find string in output, o: " + o)
		}
		o = CaptureZapOutput(func() {
			Error(m)
		})
		if !strings.Contains(o, "ERROR") {
			t.Fatal("Cannot find string in output, o: " + o)
		}
	}
}
