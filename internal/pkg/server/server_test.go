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

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/apm"
	"github.com/defenxor/ppp-connectors/pkg/broker"
	"github.com/defenxor/ppp-connectors/pkg/config"
	"github.com/defenxor/ppp-connectors/pkg/connector"

	"github.com/julienschmidt/httprouter"
)

var keys = map[string]string{
	"FLASHPOINT_API_KEY": "fp-key",
	"URLSCAN_API_KEY":    "us-key",
}

func upstream() *httptest.Server {
	router := httprouter.New()
	router.GET("/api/v1/search/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if r.Header.Get("Api-Key") != "us-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.urlscan+json")
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, `{"q":"`+r.URL.Query().Get("q")+`","size":"`+r.URL.Query().Get("size")+`"}`)
	})
	router.POST("/sources/v2/communities", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		io.Copy(w, r.Body)
	})
	return httptest.NewServer(router)
}

func startGateway(t *testing.T, keys map[string]string, base string) string {
	t.Helper()
	b, err := broker.New(config.New(nil))
	if err != nil {
		t.Fatal(err)
	}
	var opts []connector.ExecutorOption
	for s := range connector.Services() {
		opts = append(opts, connector.WithBaseURL(s, base))
	}
	s, err := New(Config{Addr: "127.0.0.1", Port: 8080, Executor: connector.NewExecutor(config.New(keys), b, opts...)})
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return "http://" + ln.Addr().String()
}

func TestNew(t *testing.T) {
	e := connector.NewExecutor(config.New(nil), nil)
	tbl := []struct {
		addr string
		port int
		ok   bool
	}{
		{"127.0.0.1", 8080, true},
		{"0.0.0.0", 65535, true},
		{"localhost", 8080, false},
		{"127.0.0.1", 0, false},
		{"127.0.0.1", 65536, false},
	}
	for _, tt := range tbl {
		_, err := New(Config{Addr: tt.addr, Port: tt.port, Executor: e})
		if (err == nil) != tt.ok {
			t.Errorf("%s:%d: unexpected result %v", tt.addr, tt.port, err)
		}
	}
	if _, err := New(Config{Addr: "127.0.0.1", Port: 8080}); err == nil {
		t.Error("expected error without executor")
	}
}

func TestListOperations(t *testing.T) {
	gw := startGateway(t, keys, "http://127.0.0.1:1")
	resp, err := http.Get(gw + "/operations")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var infos []connector.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != len(connector.Operations()) {
		t.Fatalf("expected %d operations, got %d", len(connector.Operations()), len(infos))
	}
	if infos[0].Name != "flashpoint_get_media_image" {
		t.Errorf("unexpected first operation %s", infos[0].Name)
	}
}

func TestCallRelaysUpstream(t *testing.T) {
	up := upstream()
	defer up.Close()
	gw := startGateway(t, keys, up.URL)

	resp, err := http.Get(gw + "/operations/urlscan_search?query=domain:example.com&size=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected upstream status 418, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.urlscan+json" {
		t.Errorf("unexpected content type %s", ct)
	}
	if want := `{"q":"domain:example.com","size":"10"}`; string(b) != want {
		t.Errorf("expected body %s, got %s", want, b)
	}
}

func TestCallWithJSONBody(t *testing.T) {
	up := upstream()
	defer up.Close()
	gw := startGateway(t, keys, up.URL)

	body := `{"query":"ransomware","size":25,"include":{"sources":["forums"]}}`
	resp, err := http.Post(gw+"/operations/flashpoint_search_communities", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["query"] != "ransomware" {
		t.Errorf("unexpected query %v", got["query"])
	}
	if got["size"] != float64(25) {
		t.Errorf("expected size to stay numeric, got %v", got["size"])
	}
	if _, ok := got["include"].(map[string]interface{}); !ok {
		t.Errorf("expected include to stay an object, got %v", got["include"])
	}
}

func TestCallErrors(t *testing.T) {
	up := upstream()
	defer up.Close()
	gw := startGateway(t, keys, up.URL)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	gwDead := startGateway(t, keys, deadURL)

	tbl := []struct {
		name   string
		url    string
		method string
		body   string
		code   int
		substr string
	}{
		{"missing keys", gw + "/operations/twilio_lookup?phone_number=%2B15551234567", http.MethodGet, "", http.StatusServiceUnavailable, "TWILIO_API_SECRET"},
		{"validation", gw + "/operations/flashpoint_search_communities", http.MethodPost, `{}`, http.StatusBadRequest, "query"},
		{"not an object", gw + "/operations/flashpoint_search_communities", http.MethodPost, `["x"]`, http.StatusBadRequest, "JSON object"},
		{"unknown", gw + "/operations/shodan_host", http.MethodGet, "", http.StatusNotFound, "unknown operation"},
		{"transport", gwDead + "/operations/urlscan_search?query=x", http.MethodGet, "", http.StatusBadGateway, "/api/v1/search/"},
	}
	for _, tt := range tbl {
		req, err := http.NewRequest(tt.method, tt.url, bytes.NewBufferString(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		var reply errorReply
		err = json.NewDecoder(resp.Body).Decode(&reply)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if resp.StatusCode != tt.code {
			t.Errorf("%s: expected %d, got %d (%s)", tt.name, tt.code, resp.StatusCode, reply.Error)
		}
		if !strings.Contains(reply.Error, tt.substr) {
			t.Errorf("%s: expected error to contain %q, got %q", tt.name, tt.substr, reply.Error)
		}
	}
}

func TestMissingKeysAreListed(t *testing.T) {
	gw := startGateway(t, map[string]string{}, "http://127.0.0.1:1")
	resp, err := http.Get(gw + "/operations/twilio_usage_report?start_date=2024-04-01")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var reply errorReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	want := []string{"TWILIO_ACCOUNT_SID", "TWILIO_API_SECRET", "TWILIO_API_SID"}
	if strings.Join(reply.Missing, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, reply.Missing)
	}
}

func TestDebugVars(t *testing.T) {
	up := upstream()
	defer up.Close()
	gw := startGateway(t, keys, up.URL)

	before := callCounter.Value()
	resp, err := http.Get(gw + "/operations/urlscan_search?query=x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(gw + "/debug/vars/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var vars map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&vars); err != nil {
		t.Fatal(err)
	}
	if got := vars["calls_total"]; got != float64(before+1) {
		t.Errorf("expected calls_total %d, got %v", before+1, got)
	}
	if _, ok := vars["calls_per_second"]; !ok {
		t.Error("expected calls_per_second to be published")
	}

	resp, err = http.Get(gw + "/debug/pprof/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected pprof to be disabled, got %d", resp.StatusCode)
	}
}

func TestTraceContextIsContinued(t *testing.T) {
	up := upstream()
	defer up.Close()
	gw := startGateway(t, keys, up.URL)

	const traceID = "0af7651916cd43dd8448eb211c80319c"
	get := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, gw+"/operations/urlscan_search?query=x", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Traceparent", "00-"+traceID+"-b7ad6b7169203331-01")
		req.Header.Set("Tracestate", "es=s:1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp
	}

	if tp := get().Header.Get("Traceparent"); tp != "" {
		t.Errorf("expected no trace header with APM disabled, got %s", tp)
	}

	apm.Enable(true)
	defer apm.Enable(false)
	resp := get()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected upstream status, got %d", resp.StatusCode)
	}
	tp := resp.Header.Get("Traceparent")
	if !strings.HasPrefix(tp, "00-"+traceID+"-") {
		t.Errorf("expected the caller's trace ID to be continued, got %q", tp)
	}
	if strings.Contains(tp, "b7ad6b7169203331") {
		t.Errorf("expected a new transaction ID, got %q", tp)
	}
}
