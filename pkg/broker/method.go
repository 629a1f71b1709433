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

package broker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMethod is returned for HTTP method names outside Method.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Method is the closed set of HTTP methods the broker dispatches.
type Method int

// Supported methods. The zero value is invalid.
const (
	GET Method = iota + 1
	POST
	PUT
	DELETE
	PATCH
)

// ParseMethod maps s, in any case, to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(s) {
	case "GET":
		return GET, nil
	case "POST":
		return POST, nil
	case "PUT":
		return PUT, nil
	case "DELETE":
		return DELETE, nil
	case "PATCH":
		return PATCH, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedMethod, s)
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	return m >= GET && m <= PATCH
}

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case DELETE:
		return "DELETE"
	case PATCH:
		return "PATCH"
	}
	return "Method(" + fmt.Sprint(int(m)) + ")"
}
