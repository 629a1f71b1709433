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

// Package connector describes the supported third-party API operations as
// data and executes them through a broker.Broker.
package connector

import (
	"errors"
	"fmt"
	"time"

	"github.com/defenxor/ppp-connectors/pkg/broker"
)

// ErrUnknownOperation is returned by Executor.Call for names not in the table.
var ErrUnknownOperation = errors.New("unknown operation")

// Location is where a value is placed in the outbound request.
type Location int

// Locations. The zero value places nothing.
const (
	Nowhere Location = iota
	InPath
	InQuery
	InJSON
	InForm
)

func (l Location) String() string {
	switch l {
	case InPath:
		return "path"
	case InQuery:
		return "query"
	case InJSON:
		return "json"
	case InForm:
		return "form"
	}
	return "none"
}

// Param declares one caller argument.
type Param struct {
	// Name is the argument name given by callers.
	Name string
	// Key is the name on the wire, Name when empty.
	Key      string
	In       Location
	Required bool
	// Default supplies a value when the argument is absent.
	Default  func(now time.Time) string
	Validate func(string) error
	// Encode rewrites the value after validation.
	Encode func(string) string
}

func (p Param) wireKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// Credential places a configuration value in the query or body.
type Credential struct {
	ConfigKey string
	Name      string
	In        Location
}

// BasicAuth names the configuration keys holding basic auth credentials.
type BasicAuth struct {
	UserKey     string
	PasswordKey string
}

// Operation is one call against one third-party API.
//
// Path may hold {arg} placeholders, filled with path-escaped arguments, and
// ${KEY} placeholders, filled with configuration values. Header values may
// hold ${KEY} placeholders.
type Operation struct {
	Name         string
	Service      string
	Method       broker.Method
	Path         string
	RequiredKeys []string
	Header       map[string]string
	Auth         *BasicAuth
	Credential   *Credential
	Params       []Param
	// Passthrough receives arguments not declared in Params. Nowhere rejects them.
	Passthrough Location
	Summary     string
}

// ValidationError reports a bad or missing argument.
type ValidationError struct {
	Operation string
	Param     string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Param, e.Reason)
}

// Info is the exported description of an Operation.
type Info struct {
	Name         string   `json:"name" yaml:"name"`
	Service      string   `json:"service" yaml:"service"`
	Method       string   `json:"method" yaml:"method"`
	URL          string   `json:"url" yaml:"url"`
	RequiredKeys []string `json:"required_keys" yaml:"required_keys"`
	Params       []string `json:"params" yaml:"params"`
	Passthrough  bool     `json:"passthrough" yaml:"passthrough"`
	Summary      string   `json:"summary" yaml:"summary"`
}

// Describe returns op as an Info, with the service's default base URL.
func (op Operation) Describe() Info {
	i := Info{
		Name:         op.Name,
		Service:      op.Service,
		Method:       op.Method.String(),
		URL:          services[op.Service] + op.Path,
		RequiredKeys: append([]string{}, op.RequiredKeys...),
		Passthrough:  op.Passthrough != Nowhere,
		Summary:      op.Summary,
	}
	for _, p := range op.Params {
		n := p.Name
		if p.Required {
			n += "*"
		}
		i.Params = append(i.Params, n)
	}
	return i
}
