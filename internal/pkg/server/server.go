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

// Package server exposes the connector operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/apm"
	"github.com/defenxor/ppp-connectors/internal/pkg/shared/idgen"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
	"github.com/defenxor/ppp-connectors/pkg/config"
	"github.com/defenxor/ppp-connectors/pkg/connector"

	"github.com/buaazp/fasthttprouter"
	rc "github.com/paulbellamy/ratecounter"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/expvarhandler"
	"github.com/valyala/fasthttp/pprofhandler"
	"github.com/valyala/fasthttp/reuseport"
)

var (
	callRate    = rc.NewRateCounter(1 * time.Second)
	callCounter = expvar.NewInt("calls_total")
	failCounter = expvar.NewInt("calls_failed")
)

func init() {
	expvar.Publish("calls_per_second", expvar.Func(func() interface{} {
		return callRate.Rate()
	}))
}

// Config holds the listening address and the executor that serves calls.
type Config struct {
	Addr     string
	Port     int
	Executor *connector.Executor
	// Timeout bounds a single upstream call, zero means no limit beyond the
	// broker's own.
	Timeout time.Duration
	Pprof   bool
}

// Server is the HTTP gateway in front of an Executor.
type Server struct {
	cfg Config
	srv *fasthttp.Server
}

type errorReply struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// New validates cfg and returns a Server that has not started listening yet.
func New(cfg Config) (*Server, error) {
	if a := net.ParseIP(cfg.Addr); a == nil {
		return nil, errors.New(cfg.Addr + " is not a valid IP address")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, errors.New("Invalid TCP port number")
	}
	if cfg.Executor == nil {
		return nil, errors.New("server requires an executor")
	}
	s := &Server{cfg: cfg}
	s.srv = &fasthttp.Server{
		Name:    "ppp-connectors",
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler returns the request router.
func (s *Server) Handler() fasthttp.RequestHandler {
	router := fasthttprouter.New()
	router.GET("/operations", handleList)
	router.GET("/operations/:name", s.handleCall)
	router.POST("/operations/:name", s.handleCall)
	router.GET("/debug/vars/", expVarHandler)
	if s.cfg.Pprof {
		router.GET("/debug/pprof/:name", pprofHandler)
		router.GET("/debug/pprof/", pprofHandler)
	}
	return router.Handler
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	p := strconv.Itoa(s.cfg.Port)
	log.Info(log.M{Msg: "Server listening on " + s.cfg.Addr + ":" + p})
	ln, err := reuseport.Listen("tcp4", s.cfg.Addr+":"+p)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// Shutdown stops accepting connections and waits for open ones to finish.
func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func expVarHandler(ctx *fasthttp.RequestCtx) {
	expvarhandler.ExpvarHandler(ctx)
}

func pprofHandler(ctx *fasthttp.RequestCtx) {
	pprofhandler.PprofHandler(ctx)
}

func handleList(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, connector.Catalog())
}

func (s *Server) handleCall(ctx *fasthttp.RequestCtx) {
	name := ctx.UserValue("name").(string)
	rid := idgen.RequestID()
	callRate.Incr(1)
	callCounter.Add(1)
	clientAddr := ctx.RemoteAddr().String()
	log.Info(log.M{Msg: "Received " + string(ctx.Method()) + " request from " + clientAddr, Op: name, RId: rid})

	args, err := requestArgs(ctx)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, errorReply{Error: err.Error()})
		return
	}

	c := context.Background()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(c, s.cfg.Timeout)
		defer cancel()
	}

	var tx *apm.Transaction
	if apm.Enabled() {
		tx = apm.StartTransaction(string(ctx.Method())+" /operations/"+name, "request", nil, traceHeader(ctx))
		defer func() {
			tx.Result("HTTP " + strconv.Itoa(ctx.Response.StatusCode()))
			tx.End()
		}()
		tx.SetCustom("operation", name)
		tx.SetCustom("request", rid)
		c = tx.Context(c)
		ctx.Response.Header.Set("Traceparent", tx.GetTraceContext().Traceparent)
	}

	resp, err := s.cfg.Executor.Call(c, name, args)
	if err != nil {
		failCounter.Add(1)
		if tx != nil {
			tx.SetError(err)
		}
		code, reply := errorStatus(err)
		log.Warn(log.M{Msg: "Call failed with status " + strconv.Itoa(code) + ": " + err.Error(), Op: name, RId: rid})
		writeJSON(ctx, code, reply)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn(log.M{Msg: "Cannot read upstream response: " + err.Error(), Op: name, RId: rid})
		writeJSON(ctx, fasthttp.StatusBadGateway, errorReply{Error: err.Error()})
		return
	}
	ctx.SetStatusCode(resp.StatusCode)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		ctx.SetContentType(ct)
	}
	ctx.SetBody(body)
	log.Debug(log.M{Msg: "Relayed upstream status " + resp.Status, Op: name, RId: rid})
}

// traceHeader returns the W3C trace context sent by the caller, or nil.
func traceHeader(ctx *fasthttp.RequestCtx) *apm.TraceHeader {
	tp := ctx.Request.Header.Peek("Traceparent")
	if len(tp) == 0 {
		return nil
	}
	return &apm.TraceHeader{
		Traceparent: string(tp),
		TraceState:  string(ctx.Request.Header.Peek("Tracestate")),
	}
}

// requestArgs reads the call arguments from the query string for GET and
// from a flat JSON object for POST. Non-string JSON values are passed on in
// their JSON form.
func requestArgs(ctx *fasthttp.RequestCtx) (connector.Args, error) {
	args := connector.Args{}
	if !ctx.IsPost() {
		ctx.QueryArgs().VisitAll(func(k, v []byte) {
			args[string(k)] = string(v)
		})
		return args, nil
	}
	body := ctx.PostBody()
	if len(body) == 0 {
		return args, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("request body must be a JSON object: " + err.Error())
	}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			args[k] = s
			continue
		}
		args[k] = string(v)
	}
	return args, nil
}

func errorStatus(err error) (int, errorReply) {
	reply := errorReply{Error: err.Error()}
	var mk *config.MissingKeysError
	var ve *connector.ValidationError
	switch {
	case errors.As(err, &mk):
		reply.Missing = mk.Keys
		return fasthttp.StatusServiceUnavailable, reply
	case errors.As(err, &ve):
		return fasthttp.StatusBadRequest, reply
	case errors.Is(err, connector.ErrUnknownOperation):
		return fasthttp.StatusNotFound, reply
	default:
		return fasthttp.StatusBadGateway, reply
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, code int, v interface{}) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		log.Warn(log.M{Msg: "Cannot encode response: " + err.Error()})
	}
}
