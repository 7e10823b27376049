package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/config"
	"github.com/inesp/standup-report/internal/errs"
	"github.com/inesp/standup-report/internal/models"
)

func newTestClient(t *testing.T, srv *httptest.Server, ignored ...string) *Client {
	t.Helper()
	c, err := New(config.GitHub{
		Login:        "octo",
		Username:     "octocat",
		Token:        "ghp_test",
		IgnoredRepos: ignored,
		GraphQLURL:   srv.URL + "/graphql",
		RESTURL:      srv.URL + "/api",
	}, time.Second)
	require.NoError(t, err)
	return c
}

const pageJSON = `{"data":{"search":{"issueCount":3,"pageInfo":{"hasNextPage":%s,"endCursor":"c1"},"nodes":[
 {"number":1,"title":"Fix login","url":"https://github.com/acme/app/pull/1","state":"MERGED",
  "createdAt":"2024-05-01T10:00:00Z","mergedAt":"2024-05-02T10:00:00Z","updatedAt":"2024-05-02T10:00:00Z",
  "reviewDecision":"APPROVED","author":{"login":"octocat"},"repository":{"nameWithOwner":"acme/app"},
  "closingIssuesReferences":{"nodes":[{"url":"https://linear.app/acme/issue/ENG-1"}]}},
 {"number":7,"title":"Legacy","url":"https://github.com/acme/legacy/pull/7","state":"OPEN",
  "createdAt":"2024-05-01T10:00:00Z","mergedAt":null,"updatedAt":"2024-05-01T11:00:00Z",
  "reviewDecision":null,"author":{"login":"octocat"},"repository":{"nameWithOwner":"acme/legacy"},
  "closingIssuesReferences":{"nodes":[]}},
 {"number":2,"title":"Draft","url":"https://github.com/acme/app/pull/2","state":"WEIRD",
  "createdAt":"2024-05-01T10:00:00Z","mergedAt":null,"updatedAt":"2024-05-03T10:00:00Z",
  "reviewDecision":"SOMETHING_NEW","author":null,"repository":{"nameWithOwner":"acme/app"},
  "closingIssuesReferences":{"nodes":[]}},
 {}
]}}}`

func TestFetchRecentPRs_Normalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))

		var body struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "author:octocat is:pr updated:>2024-05-01T00:00:00Z sort:updated", body.Variables["searchQuery"])

		_, _ = w.Write([]byte(strings.Replace(pageJSON, "%s", "false", 1)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "acme/legacy")
	prs, err := c.FetchRecentPRs(context.Background(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, prs, 2)

	first := prs[0]
	assert.Equal(t, "acme/app/pull/1", first.UID())
	assert.Equal(t, models.PRStateMerged, first.State)
	assert.Equal(t, models.ReviewApproved, first.ReviewDecision)
	require.NotNil(t, first.MergedAt)
	assert.Equal(t, "octocat", first.Author)
	assert.Equal(t, []string{"https://linear.app/acme/issue/ENG-1"}, first.LinkedIssues)

	second := prs[1]
	assert.Equal(t, models.PRState(""), second.State)
	assert.Equal(t, models.ReviewDecision(""), second.ReviewDecision)
	assert.Nil(t, second.MergedAt)
	assert.Empty(t, second.Author)
}

func TestFetchOpenPRs_UncursoredPaginationTerminates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(strings.Replace(pageJSON, "%s", "true", 1)))
	}))
	defer srv.Close()

	prs, err := newTestClient(t, srv).FetchOpenPRs(context.Background())
	require.NoError(t, err)

	assert.Len(t, prs, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPRs_RemoteErrorAbortsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).FetchOpenPRs(context.Background())
	var re *errs.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "rate limited", re.UserDescription())
}

func TestViewer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graphql":
			_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octo"}}}`))
		case "/api/user":
			assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"login":"octo-rest"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	login, err := c.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octo", login)

	restLogin, err := c.RESTViewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octo-rest", restLogin)
}

func TestValidateSearchQuery(t *testing.T) {
	assert.NoError(t, ValidateSearchQuery(OpenPRsQuery("octocat")))
	assert.Error(t, ValidateSearchQuery(strings.Repeat("a", 257)))
	assert.Error(t, ValidateSearchQuery("a OR b OR c OR d OR e OR f OR g"))
	assert.NoError(t, ValidateSearchQuery("a OR b AND c NOT d OR e OR f"))
}
