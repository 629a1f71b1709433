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

// Package broker turns request descriptors into HTTP calls using the proxy
// and TLS settings of a config.Table.
package broker

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/apm"
	"github.com/defenxor/ppp-connectors/internal/pkg/shared/idgen"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
	"github.com/defenxor/ppp-connectors/pkg/config"
)

// ErrConflictingBody is returned when a Request carries both Form and JSON.
var ErrConflictingBody = errors.New("request cannot have both form and JSON body")

// BasicAuth holds HTTP basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes one outbound call. Zero-valued optional fields are omitted.
type Request struct {
	Method Method
	URL    string
	Header map[string]string
	// Params are appended to the URL query.
	Params url.Values
	// Form is sent as an application/x-www-form-urlencoded body.
	Form url.Values
	// JSON is marshalled as the request body when non-nil.
	JSON interface{}
	Auth *BasicAuth
	// Operation tags log lines, it is not sent.
	Operation string
}

// NewRequest returns a Request for a method given by name, so that "get" and
// "GET" are treated alike.
func NewRequest(method, rawURL string) (Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return Request{}, err
	}
	return Request{Method: m, URL: rawURL}, nil
}

func (r Request) body() (io.Reader, string, error) {
	switch {
	case r.Form != nil && r.JSON != nil:
		return nil, "", ErrConflictingBody
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("cannot encode JSON body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
	return nil, "", nil
}

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	apm       bool
}

// Option configures a Broker.
type Option func(*options)

// WithTimeout sets an overall client timeout. The default is none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the proxy and TLS aware transport built from config.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithAPM instruments the client with Elastic APM spans.
func WithAPM(enabled bool) Option {
	return func(o *options) { o.apm = enabled }
}

// Broker dispatches Requests. It holds no per-call state and is safe for
// concurrent use.
type Broker struct {
	client *http.Client
}

// New returns a Broker whose transport uses the proxies and TLS verification
// setting found in cfg.
func New(cfg *config.Table, opts ...Option) (*Broker, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}

	rt := o.transport
	if rt == nil {
		t, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		rt = t
	}

	c := &http.Client{Transport: rt, Timeout: o.timeout}
	if o.apm {
		c = apm.WrapClient(c)
	}
	return &Broker{client: c}, nil
}

func newTransport(cfg *config.Table) (*http.Transport, error) {
	httpProxy, err := parseProxy(cfg.HTTPProxy())
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxy(cfg.HTTPSProxy())
	if err != nil {
		return nil, err
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = func(req *http.Request) (*url.URL, error) {
		switch req.URL.Scheme {
		case "http":
			return httpProxy, nil
		case "https":
			return httpsProxy, nil
		}
		return nil, nil
	}
	if !cfg.VerifyTLS() {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 operator opt-out
		log.Debug(log.M{Msg: "TLS certificate verification disabled"})
	}
	if httpProxy != nil || httpsProxy != nil {
		log.Debug(log.M{Msg: "Using proxies http=" + cfg.HTTPProxy() + " https=" + cfg.HTTPSProxy()})
	}
	return t, nil
}

func parseProxy(s string) (*url.URL, error) {
	if s == "" {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", s, err)
	}
	return u, nil
}

// Dispatch sends r once and returns the response as received. Non-2xx
// statuses are not errors; the caller must close the response body.
func (b *Broker) Dispatch(ctx context.Context, r Request) (*http.Response, error) {
	if !r.Method.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, r.Method)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	body, contentType, err := r.body()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method.String(), u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	if r.Auth != nil {
		req.SetBasicAuth(r.Auth.Username, r.Auth.Password)
	}

	m := log.M{Op: r.Operation, RId: idgen.RequestID()}
	m.Msg = "Sending " + r.Method.String() + " request to " + u.Host + u.Path
	log.Debug(m)

	resp, err := b.client.Do(req)
	if err != nil {
		m.Msg = "Request to " + u.Host + " failed: " + err.Error()
		log.Warn(m)
		return nil, err
	}
	m.Msg = "Received " + resp.Status + " from " + u.Host
	log.Debug(m)
	return resp, nil
}
