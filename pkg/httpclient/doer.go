package httpclient

import (
	"context"
	"net/http"
)

// ContextClient is the context-first request shape implemented by both Client
// and CircuitBreakerClient.
type ContextClient interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// RequestDoer adapts a ContextClient to the plain Do(*http.Request) shape,
// taking the context from the request itself. Consumers that build requests
// with http.NewRequestWithContext can depend on the adapted interface without
// knowing about retry or breaker policy.
type RequestDoer struct {
	client ContextClient
}

func NewRequestDoer(client ContextClient) *RequestDoer {
	return &RequestDoer{client: client}
}

func (d *RequestDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.Context(), req)
}
