package webdav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebDAV methods not covered by net/http constants.
const (
	MethodPropfind = "PROPFIND"
	MethodMkcol    = "MKCOL"
)

// Request describes one exchange against the remote file store:
// method, path relative to the store's base URL, and an optional body.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Response carries the outcome of a dispatched Request. Errors past
// this boundary are data: a transport failure surfaces as a Go error
// from Do, a server rejection as a non-2xx Status.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the status is in the 2xx range, which covers the
// 207 Multi-Status answer WebDAV servers give to PROPFIND.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport dispatches a request descriptor to whatever actually
// performs the exchange. The indirection keeps the Client testable and
// mirrors deployments where the HTTP call happens in a privileged
// context the client cannot reach directly.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// HTTPTransport performs exchanges with net/http and basic
// authentication.
type HTTPTransport struct {
	base     string
	username string
	password string
	client   *http.Client
}

// NewHTTPTransport builds a transport for the store at cfg. Timeouts
// are not set here: each request arrives with its own deadline on the
// context.
func NewHTTPTransport(cfg RemoteConfig) *HTTPTransport {
	return &HTTPTransport{
		base:     strings.TrimSuffix(cfg.ServerURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{},
	}
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) (Response, error) {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.base+path, body)
	if err != nil {
		return Response{}, fmt.Errorf("build %s request: %w", req.Method, err)
	}
	httpReq.SetBasicAuth(t.username, t.password)

	switch req.Method {
	case MethodPropfind:
		httpReq.Header.Set("Depth", "0")
		httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	case http.MethodPut, http.MethodPost:
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "*/*")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", req.Method, err)
	}

	return Response{
		Status: resp.StatusCode,
		Body:   data,
		Header: resp.Header,
	}, nil
}
