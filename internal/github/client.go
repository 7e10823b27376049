// Package github fetches the configured user's pull requests from the
// code-hosting GraphQL API and checks the account through the REST API.
package github

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"

	"github.com/inesp/standup-report/internal/config"
	"github.com/inesp/standup-report/internal/remote"
)

//go:embed queries/*.graphql
var queryFS embed.FS

func loadQuery(name string) string {
	b, err := queryFS.ReadFile("queries/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded query %s: %v", name, err))
	}
	return string(b)
}

var (
	prsQuery    = loadQuery("prs.graphql")
	viewerQuery = loadQuery("viewer.graphql")
)

// Client talks to the code-hosting service on behalf of one user.
type Client struct {
	cfg    config.GitHub
	remote *remote.Client
	rest   *gh.Client
}

// New creates a Client. The REST client shares the GraphQL timeout.
func New(cfg config.GitHub, timeout time.Duration) (*Client, error) {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &tokenTransport{token: cfg.Token},
	}
	rest := gh.NewClient(httpClient)

	if cfg.RESTURL != "" {
		base := cfg.RESTURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := rest.BaseURL.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse REST url %q: %w", cfg.RESTURL, err)
		}
		rest.BaseURL = u
	}

	return &Client{
		cfg:    cfg,
		remote: remote.NewClient(timeout),
		rest:   rest,
	}, nil
}

// tokenTransport adds the authorization header to REST requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Accept":        "application/vnd.github+json",
		"Authorization": "Bearer " + c.cfg.Token,
	}
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any) (*remote.Response, error) {
	return c.remote.PostGraphQL(ctx, c.cfg.GraphQLURL, c.headers(), query, vars)
}

// Viewer returns the login the token authenticates as, via GraphQL.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	resp, err := c.query(ctx, viewerQuery, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.Viewer.Login, nil
}

// RESTViewer returns the authenticated login through the REST API.
func (c *Client) RESTViewer(ctx context.Context) (string, error) {
	u, _, err := c.rest.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("fetching authenticated user: %w", err)
	}
	return u.GetLogin(), nil
}
