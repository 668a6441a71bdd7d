// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/helmgate-dev/helmgate/internal/catalog"
)

// httpTransport calls plain REST upstreams with the payload passed
// through verbatim.
type httpTransport struct {
	cfg    ProviderConfig
	client *http.Client
}

func newHTTPTransport(cfg ProviderConfig) *httpTransport {
	return &httpTransport{
		cfg: cfg,
		// Per-attempt deadlines come from the request context so a
		// streaming response is not killed mid-body by a client-wide
		// timeout.
		client: &http.Client{},
	}
}

func (t *httpTransport) Kind() catalog.TransportKind { return catalog.TransportHTTP }

func (t *httpTransport) endpoint(req Request) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	return t.cfg.BaseURL
}

func (t *httpTransport) do(ctx context.Context, req Request) (*http.Response, Result, bool) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(req), bytes.NewReader(req.Payload))
	if err != nil {
		return nil, ClassifyError(err), false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, ClassifyError(err), false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, ClassifyStatus(resp.StatusCode, string(body)), false
	}

	return resp, Result{}, true
}

func (t *httpTransport) Execute(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	resp, failure, ok := t.do(ctx, req)
	if !ok {
		return failure
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifyError(err)
	}
	return Succeed(resp.StatusCode, body)
}

func (t *httpTransport) Stream(ctx context.Context, req Request) (<-chan StreamEvent, Result) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)

	resp, failure, ok := t.do(ctx, req)
	if !ok {
		cancel()
		return nil, failure
	}

	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		defer cancel()
		defer resp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !emit(ctx, events, StreamEvent{Data: chunk}) {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					r := ClassifyError(err)
					r.Category = CategoryStream
					emit(ctx, events, StreamEvent{Err: &r})
				}
				return
			}
		}
	}()

	return events, Result{Success: true}
}
