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

package apm

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.elastic.co/apm"
	"go.elastic.co/apm/module/apmhttp"
)

var enabled bool
var mu = sync.RWMutex{}

//Enabled returns whether apm is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

//Enable set apm status
func Enable(e bool) {
	mu.Lock()
	enabled = e
	mu.Unlock()
}

// TraceHeader defines structure for distributed tracing headers
type TraceHeader struct {
	Traceparent string
	TraceState  string
}

// Transaction wraps transaction from apm Default tracer and make it concurrency safe
type Transaction struct {
	sync.Mutex
	Tx    *apm.Transaction
	ended bool
}

// StartTransaction returns a mutex protected apm.Transaction with optional starting time.
func StartTransaction(name, transactionType string, startTime *time.Time, parentHeader *TraceHeader) (tx *Transaction) {
	txObj := Transaction{}
	opts := apm.TransactionOptions{}
	if startTime != nil {
		opts.Start = *startTime
	}
	if parentHeader != nil && parentHeader.Traceparent != "" {
		if tc, err := apmhttp.ParseTraceparentHeader(parentHeader.Traceparent); err == nil {
			tc.State, _ = apmhttp.ParseTracestateHeader(parentHeader.TraceState)
			opts.TraceContext = tc
		}
	}

	txObj.Tx = apm.DefaultTracer.StartTransactionOptions(name, transactionType, opts)
	tx = &txObj
	return
}

// Context returns ctx carrying the transaction, so that instrumented clients
// record their requests as spans of it.
func (t *Transaction) Context(ctx context.Context) context.Context {
	return apm.ContextWithTransaction(ctx, t.Tx)
}

// InContext reports whether ctx already carries a transaction.
func InContext(ctx context.Context) bool {
	return apm.TransactionFromContext(ctx) != nil
}

// SetCustom set custom value for the transaction
func (t *Transaction) SetCustom(key string, value string) {
	t.Lock()
	defer t.Unlock()
	if t.ended {
		return
	}
	t.Tx.Context.SetLabel(key, value)
}

// Result set the result for the transaction
func (t *Transaction) Result(value string) {
	t.Lock()
	defer t.Unlock()
	if t.ended {
		return
	}
	t.Tx.Result = value
}

// SetError set and send error
func (t *Transaction) SetError(err error) {
	e := apm.DefaultTracer.NewError(err)
	e.SetTransaction(t.Tx)
	e.Send()
}

// End completes the transaction
func (t *Transaction) End() {
	t.Lock()
	defer t.Unlock()
	if t.ended {
		return
	}
	t.ended = true
	t.Tx.End()
}

// GetTraceContext gets info for distributed transaction
func (t *Transaction) GetTraceContext() (th *TraceHeader) {
	t.Lock()
	defer t.Unlock()
	traceContext := t.Tx.TraceContext()
	return &TraceHeader{
		Traceparent: apmhttp.FormatTraceparentHeader(traceContext),
		TraceState:  traceContext.State.String(),
	}
}

// WrapClient returns c instrumented with outgoing request spans.
func WrapClient(c *http.Client) *http.Client {
	return apmhttp.WrapClient(c)
}
