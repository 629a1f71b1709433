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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const rowFormat = "%-30s %-6s %-14s %s\n"

// Catalog describes every operation, sorted by name.
func Catalog() []Info {
	ops := Operations()
	out := make([]Info, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Describe())
	}
	return out
}

// WriteTable writes one line per operation with its method, service and
// required configuration keys.
func WriteTable(w io.Writer) error {
	if _, err := fmt.Fprintf(w, rowFormat, "OPERATION", "METHOD", "SERVICE", "REQUIRED KEYS"); err != nil {
		return err
	}
	for _, op := range Operations() {
		_, err := fmt.Fprintf(w, rowFormat, op.Name, op.Method, op.Service, strings.Join(op.RequiredKeys, ","))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCatalog writes the Catalog in the given format: table, json or yaml.
func WriteCatalog(w io.Writer, format string) error {
	switch format {
	case "", "table":
		return WriteTable(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Catalog())
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Catalog()); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, valid formats are table|json|yaml", format)
	}
}
