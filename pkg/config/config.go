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

// Package config resolves connector settings from an optional KEY=VALUE file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/fs"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
	"github.com/defenxor/ppp-connectors/internal/pkg/shared/str"

	"github.com/subosito/gotenv"
)

// DefaultFile is the file name searched for when Options.File is empty.
const DefaultFile = ".env"

// Networking keys read by the broker.
const (
	KeyHTTPProxy  = "HTTP_PROXY"
	KeyHTTPSProxy = "HTTPS_PROXY"
	KeyVerifySSL  = "VERIFY_SSL"
)

// Options controls where Resolve reads from.
type Options struct {
	// File is an explicit KEY=VALUE file. When empty, DefaultFile is searched
	// for from SearchFrom upwards, then next to the executable.
	File string
	// SearchFrom defaults to the working directory.
	SearchFrom string
	// Environ defaults to os.Environ().
	Environ []string
}

// Table is an immutable key/value lookup. It is safe for concurrent use.
type Table struct {
	m    map[string]string
	file string
}

// New returns a Table holding a copy of m.
func New(m map[string]string) *Table {
	t := &Table{m: make(map[string]string, len(m))}
	for k, v := range m {
		t.m[k] = v
	}
	return t
}

// Resolve builds a Table from the file source overlaid by the environment.
// A missing or empty file is not an error.
func Resolve(opts Options) (*Table, error) {
	t := &Table{m: make(map[string]string)}

	file := opts.File
	if file == "" {
		start := opts.SearchFrom
		if start == "" {
			start, _ = os.Getwd()
		}
		file = fs.FindFile(DefaultFile, start)
	}

	if file != "" && fs.FileExist(file) {
		values, err := readFile(file)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			t.m[k] = v
		}
		t.file = file
		log.Debug(log.M{Msg: fmt.Sprintf("Read %d entries from %s", len(values), file)})
	} else if opts.File != "" {
		log.Debug(log.M{Msg: "Config file " + opts.File + " not found, using environment only"})
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	overlayEnv(t.m, environ)
	return t, nil
}

// readFile parses a dotenv file, keeping keys exactly as written.
func readFile(file string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}
	defer f.Close()
	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", file, err)
	}
	return env, nil
}

// overlayEnv copies environ entries into m. Keys are case-sensitive, so
// http_proxy and HTTP_PROXY are different entries.
func overlayEnv(m map[string]string, environ []string) {
	for _, kv := range environ {
		i := strings.Index(kv, "=")
		if i <= 0 {
			continue
		}
		m[kv[:i]] = kv[i+1:]
	}
}

// File returns the path of the file source, or an empty string if none was read.
func (t *Table) File() string {
	return t.file
}

// Get returns the value of key and whether it is present.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.m[key]
	return v, ok
}

// Value returns the value of key, or an empty string.
func (t *Table) Value(key string) string {
	v, _ := t.Get(key)
	return v
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.m)
}

// Keys returns the sorted keys.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.m))
	for k := range t.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Require returns a *MissingKeysError listing every key absent from t.
func (t *Table) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !t.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingKeysError{Keys: str.UniqSorted(missing)}
}

// HTTPProxy returns the proxy URL for plain HTTP targets, empty means direct.
func (t *Table) HTTPProxy() string {
	return t.Value(KeyHTTPProxy)
}

// HTTPSProxy returns the proxy URL for HTTPS targets, empty means direct.
func (t *Table) HTTPSProxy() string {
	return t.Value(KeyHTTPSProxy)
}

// VerifyTLS is false only when VERIFY_SSL is "false", in any case.
func (t *Table) VerifyTLS() bool {
	return !strings.EqualFold(t.Value(KeyVerifySSL), "false")
}

// MissingKeysError lists required keys absent from a Table.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// IsMissingKeys reports whether err carries a *MissingKeysError.
func IsMissingKeys(err error) bool {
	var mk *MissingKeysError
	return errors.As(err, &mk)
}
