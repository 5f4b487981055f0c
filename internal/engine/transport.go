package engine

import (
	"context"
	"net/http"
	"net/url"
)

// Request is one outgoing HTTP call of a session.
type Request struct {
	Method string
	URL    *url.URL
	// Form is sent url-encoded as the request body when non nil.
	Form  url.Values
	Query url.Values
	// Cookie is the rendered cookie jar, sent as the Cookie header when non empty.
	Cookie string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends a request and returns the response without following
// redirects. Implementations must honor ctx and their own timeout, and only
// return an error when no response was received.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}
