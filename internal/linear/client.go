// Package linear reads the configured user's issue activity and open issues
// from the issue tracker's GraphQL API.
package linear

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

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
	activityQuery   = loadQuery("activity.graphql")
	openIssuesQuery = loadQuery("open_issues.graphql")
	viewerQuery     = loadQuery("viewer.graphql")
)

type Client struct {
	cfg    config.Linear
	remote *remote.Client
	now    func() time.Time
}

func New(cfg config.Linear, timeout time.Duration) *Client {
	return &Client{cfg: cfg, remote: remote.NewClient(timeout), now: time.Now}
}

// authHeader returns the Authorization value. Personal API keys are sent
// as-is; anything else is treated as an OAuth access token.
func (c *Client) authHeader() string {
	if strings.HasPrefix(c.cfg.Token, "lin_api_") {
		return c.cfg.Token
	}
	return "Bearer " + c.cfg.Token
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any) (*remote.Response, error) {
	return c.remote.PostGraphQL(ctx, c.cfg.GraphQLURL, map[string]string{"Authorization": c.authHeader()}, query, vars)
}

// Viewer returns the email of the account the token belongs to.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	resp, err := c.query(ctx, viewerQuery, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Viewer struct {
			Email string `json:"email"`
		} `json:"viewer"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.Viewer.Email, nil
}
