// Package client is the runtime support library for generated wadl2go
// clients. Generated code talks to the network exclusively through the
// Transport capability defined here; the generator never emits concrete
// socket or TLS behavior.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Request is the transport-level view of one HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the transport-level view of one HTTP result.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport executes a single HTTP exchange. Implementations are supplied by
// the caller of generated code; HTTPTransport adapts *http.Client.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Outcome carries the result of an asynchronous generated call. Receiving
// from the channel returned by an async method is the suspension point.
type Outcome[T any] struct {
	Value T
	Err   error
}

// TransportError wraps a failure reported by a Transport implementation.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// UnexpectedStatusError is returned by generated code when a response status
// matches none of the statuses declared for the method.
type UnexpectedStatusError struct {
	Status int
	Body   []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// HTTPTransport adapts a standard *http.Client to the Transport capability.
type HTTPTransport struct {
	Client *http.Client
}

// Do performs the request with the underlying client, reading the full body.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	hc := t.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hresp, err := hc.Do(hreq)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	defer hresp.Body.Close()
	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	return &Response{Status: hresp.StatusCode, Header: hresp.Header, Body: data}, nil
}
