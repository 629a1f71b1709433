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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/apm"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
	"github.com/defenxor/ppp-connectors/pkg/broker"
	"github.com/defenxor/ppp-connectors/pkg/config"
)

var (
	configRef = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)
	argRef    = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBaseURL sends the operations of service to base instead of the
// provider's public endpoint.
func WithBaseURL(service, base string) ExecutorOption {
	return func(e *Executor) { e.base[service] = strings.TrimRight(base, "/") }
}

// WithClock replaces time.Now for parameter defaults.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// Executor runs table operations. It is safe for concurrent use.
type Executor struct {
	cfg    *config.Table
	broker *broker.Broker
	base   map[string]string
	now    func() time.Time
}

// NewExecutor returns an Executor reading credentials from cfg and sending
// requests through b.
func NewExecutor(cfg *config.Table, b *broker.Broker, opts ...ExecutorOption) *Executor {
	e := &Executor{cfg: cfg, broker: b, base: Services(), now: time.Now}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

// Call runs the operation called name once and returns the raw response.
// A missing required configuration key is reported as *config.MissingKeysError
// before any network I/O. When ctx already carries an APM transaction the call
// is recorded under it instead of a new one.
func (e *Executor) Call(ctx context.Context, name string, args Args) (resp *http.Response, err error) {
	req, err := e.Prepare(name, args)
	if err != nil {
		return nil, err
	}

	if apm.Enabled() && !apm.InContext(ctx) {
		tx := apm.StartTransaction(name, "connector", nil, nil)
		defer func() {
			switch {
			case err != nil:
				tx.SetError(err)
				tx.Result("error")
			default:
				tx.Result(resp.Status)
			}
			tx.End()
		}()
		tx.SetCustom("operation", name)
		ctx = tx.Context(ctx)
	}

	return e.broker.Dispatch(ctx, req)
}

// Prepare checks configuration and arguments and returns the request Call
// would send.
func (e *Executor) Prepare(name string, args Args) (broker.Request, error) {
	op, ok := Lookup(name)
	if !ok {
		return broker.Request{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	if err := e.cfg.Require(op.RequiredKeys...); err != nil {
		log.Debug(log.M{Msg: err.Error(), Op: name})
		return broker.Request{}, err
	}
	return e.build(op, args)
}

func (e *Executor) build(op Operation, args Args) (broker.Request, error) {
	req := broker.Request{Method: op.Method, Operation: op.Name}
	pathVars := map[string]string{}
	query := url.Values{}
	form := url.Values{}
	body := map[string]interface{}{}
	usesBody := op.Passthrough == InJSON

	place := func(in Location, key string, v interface{}) {
		switch in {
		case InPath:
			pathVars[key] = fmt.Sprint(v)
		case InQuery:
			query.Set(key, fmt.Sprint(v))
		case InJSON:
			body[key] = v
		case InForm:
			form.Set(key, fmt.Sprint(v))
		}
	}

	if c := op.Credential; c != nil {
		place(c.In, c.Name, e.cfg.Value(c.ConfigKey))
		usesBody = usesBody || c.In == InJSON
	}

	declared := map[string]bool{}
	for _, p := range op.Params {
		declared[p.Name] = true
		usesBody = usesBody || p.In == InJSON
		v, ok := args[p.Name]
		if !ok && p.Default != nil {
			v, ok = p.Default(e.now()), true
		}
		if !ok {
			if p.Required {
				return req, &ValidationError{Operation: op.Name, Param: p.Name, Reason: "required"}
			}
			continue
		}
		if p.In == InPath && v == "" {
			return req, &ValidationError{Operation: op.Name, Param: p.Name, Reason: "must not be empty"}
		}
		if p.Validate != nil {
			if err := p.Validate(v); err != nil {
				return req, &ValidationError{Operation: op.Name, Param: p.Name, Reason: err.Error()}
			}
		}
		if p.Encode != nil {
			v = p.Encode(v)
		}
		place(p.In, p.wireKey(), v)
	}

	var extra []string
	for k := range args {
		if !declared[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if op.Passthrough == Nowhere {
			return req, &ValidationError{Operation: op.Name, Param: k, Reason: "unknown argument"}
		}
		place(op.Passthrough, k, passthroughValue(op.Passthrough, args[k]))
	}

	u, err := e.renderPath(op, pathVars)
	if err != nil {
		return req, err
	}
	req.URL = u

	if len(op.Header) > 0 {
		req.Header = make(map[string]string, len(op.Header))
		for k, v := range op.Header {
			req.Header[k] = configRef.ReplaceAllStringFunc(v, func(ref string) string {
				return e.cfg.Value(configRef.FindStringSubmatch(ref)[1])
			})
		}
	}
	if op.Auth != nil {
		req.Auth = &broker.BasicAuth{
			Username: e.cfg.Value(op.Auth.UserKey),
			Password: e.cfg.Value(op.Auth.PasswordKey),
		}
	}
	if len(query) > 0 {
		req.Params = query
	}
	if len(form) > 0 {
		req.Form = form
	}
	if usesBody {
		req.JSON = body
	}
	return req, nil
}

// passthroughValue keeps JSON literals such as numbers, booleans, arrays and
// objects typed in a JSON body; everything else is sent as a string.
func passthroughValue(in Location, v string) interface{} {
	if in != InJSON {
		return v
	}
	t := strings.TrimSpace(v)
	if t == "" || !json.Valid([]byte(t)) {
		return v
	}
	return json.RawMessage(t)
}

func (e *Executor) renderPath(op Operation, pathVars map[string]string) (string, error) {
	base, ok := e.base[op.Service]
	if !ok {
		return "", fmt.Errorf("%s: no base URL for service %s", op.Name, op.Service)
	}

	var missing []string
	p := configRef.ReplaceAllStringFunc(op.Path, func(ref string) string {
		k := configRef.FindStringSubmatch(ref)[1]
		v, ok := e.cfg.Get(k)
		if !ok {
			missing = append(missing, k)
		}
		return PathSegment(v)
	})
	p = argRef.ReplaceAllStringFunc(p, func(ref string) string {
		k := argRef.FindStringSubmatch(ref)[1]
		v, ok := pathVars[k]
		if !ok {
			missing = append(missing, k)
		}
		return PathSegment(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%s: unresolved path placeholders %s", op.Name, strings.Join(missing, ", "))
	}
	return base + p, nil
}
