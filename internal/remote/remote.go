// Package remote holds the request helpers shared by every source client:
// one GraphQL POST and one REST GET, with uniform error classification.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inesp/standup-report/internal/errs"
)

// DefaultTimeout bounds every outgoing call. There is no retry.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Response is a decoded JSON response together with the raw HTTP metadata.
type Response struct {
	StatusCode int
	Header     http.Header
	Data       json.RawMessage
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Client performs GraphQL and REST calls.
type Client struct {
	http *http.Client
}

// NewClient returns a Client whose calls time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP wraps an existing http.Client, e.g. one carrying an
// OAuth2 transport.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{http: hc}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage     `json:"data"`
	Errors []errs.GraphQLError `json:"errors"`
}

// PostGraphQL posts query with variables to endpoint. Responses with a
// populated "errors" field, or with no "data", fail with *errs.RemoteError
// even on HTTP 200.
func (c *Client) PostGraphQL(ctx context.Context, endpoint string, headers map[string]string, query string, variables map[string]any) (*Response, error) {
	target := targetName(endpoint)
	if variables == nil {
		variables = map[string]any{}
	}
	slog.Info("calling GraphQL", "method", http.MethodPost, "target", target, "variables", variables)

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &errs.TransportError{Target: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, raw, err := c.do(req, target)
	if err != nil {
		return nil, err
	}

	var env graphQLEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &errs.TransportError{Target: target, Status: resp.StatusCode, Err: fmt.Errorf("response is not valid JSON: %w", err)}
	}

	if isNull(env.Data) {
		return nil, &errs.RemoteError{Target: target, Message: "response did not contain any data", GraphQLErrors: env.Errors}
	}
	if len(env.Errors) > 0 {
		return nil, &errs.RemoteError{Target: target, Message: "errors in response", GraphQLErrors: env.Errors}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Data: env.Data}, nil
}

// GetREST issues a GET to endpoint with the given query parameters.
func (c *Client) GetREST(ctx context.Context, endpoint string, headers map[string]string, params url.Values) (*Response, error) {
	target := targetName(endpoint)
	slog.Info("calling REST", "method", http.MethodGet, "target", endpoint, "params", params.Encode())

	full := endpoint
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		full = endpoint + sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, &errs.TransportError{Target: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, raw, err := c.do(req, target)
	if err != nil {
		return nil, err
	}

	if !json.Valid(raw) {
		return nil, &errs.TransportError{Target: target, Status: resp.StatusCode, Err: fmt.Errorf("response is not valid JSON")}
	}
	if isNull(raw) {
		return nil, &errs.RemoteError{Target: target, Message: "response was null"}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Data: raw}, nil
}

// do sends req and reads the whole body, failing on transport errors and
// non-2xx statuses.
func (c *Client) do(req *http.Request, target string) (*http.Response, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("request failed", "target", target, "error", err)
		return nil, nil, &errs.TransportError{Target: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &errs.TransportError{Target: target, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(string(raw))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, nil, &errs.TransportError{Target: target, Status: resp.StatusCode, Body: body}
	}
	return resp, raw, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// targetName shortens an endpoint URL to its host for logs and errors.
func targetName(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
