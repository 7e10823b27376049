// Package report builds the standup report: it fetches every source, then
// reconciles the results into "done" and "next" lists.
package report

import (
	"sort"

	"github.com/inesp/standup-report/internal/models"
)

// Input holds everything reconciliation needs. All slices are owned by the
// caller for the duration of one build.
type Input struct {
	RecentPRs  []models.PullRequest
	OpenPRs    []models.PullRequest
	Activity   []models.IssueActivity
	OpenIssues []models.Issue
	Meetings   []models.Meeting
	Ignored    []models.IgnoredItem
}

// Result is the reconciled report content.
type Result struct {
	Done     []models.Identifiable
	Next     []models.Identifiable
	Meetings []models.Meeting
	Ignored  []models.IgnoredItem
}

// Reconcile merges the fetched collections. It never fails and does not
// modify its input.
func Reconcile(in Input) Result {
	recent := SortRecentPRs(in.RecentPRs)

	recentURLs := prURLs(recent)
	openURLs := prURLs(in.OpenPRs)

	var activity []models.IssueActivity
	for _, a := range in.Activity {
		if a.HasAttachmentIn(recentURLs) {
			continue
		}
		activity = append(activity, a)
	}

	var openIssues []models.Issue
	for _, issue := range in.OpenIssues {
		if issue.HasAttachmentIn(openURLs) {
			continue
		}
		openIssues = append(openIssues, issue)
	}
	openIssues = SelectOpenIssues(openIssues)

	done := make([]models.Identifiable, 0, len(recent)+len(activity))
	for _, pr := range recent {
		done = append(done, pr)
	}
	for _, a := range activity {
		done = append(done, a)
	}

	next := make([]models.Identifiable, 0, len(in.OpenPRs)+len(openIssues))
	for _, pr := range in.OpenPRs {
		next = append(next, pr)
	}
	for _, issue := range openIssues {
		next = append(next, issue)
	}

	ignored := ignoredKeys(in.Ignored)
	return Result{
		Done:     dropIgnored(done, ignored),
		Next:     dropIgnored(next, ignored),
		Meetings: dropIgnored(in.Meetings, ignored),
		Ignored:  in.Ignored,
	}
}

// SortRecentPRs returns a copy ordered by last change, with merged PRs
// moved ahead of the rest.
func SortRecentPRs(prs []models.PullRequest) []models.PullRequest {
	out := append([]models.PullRequest(nil), prs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastChange.Before(out[j].LastChange) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsMerged() && !out[j].IsMerged() })
	return out
}

// SelectOpenIssues sorts by state, furthest along first. Once anything is
// started, unstarted issues are hidden.
func SelectOpenIssues(issues []models.Issue) []models.Issue {
	out := append([]models.Issue(nil), issues...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].State > out[j].State })

	if len(out) == 0 || out[0].State < models.IssueStateStarted {
		return out
	}
	kept := out[:0]
	for _, issue := range out {
		if issue.State >= models.IssueStateStarted {
			kept = append(kept, issue)
		}
	}
	return kept
}

func prURLs(prs []models.PullRequest) map[string]struct{} {
	urls := make(map[string]struct{}, len(prs))
	for _, pr := range prs {
		urls[pr.URL] = struct{}{}
	}
	return urls
}

func ignoredKeys(items []models.IgnoredItem) map[models.ItemKey]struct{} {
	keys := make(map[models.ItemKey]struct{}, len(items))
	for _, it := range items {
		keys[it.Key()] = struct{}{}
	}
	return keys
}

func dropIgnored[T models.Identifiable](items []T, ignored map[models.ItemKey]struct{}) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, skip := ignored[it.ItemKey()]; skip {
			continue
		}
		out = append(out, it)
	}
	return out
}
