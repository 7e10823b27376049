package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/models"
)

func TestIgnoreRun_AddsAndLists(t *testing.T) {
	testEnv(t)

	require.NoError(t, ignoreRun(testCmd(), "pr", "acme/app/pull/1", "Fix login"))
	require.NoError(t, ignoreRun(testCmd(), "Issue", "issue-42", ""))

	s, err := getStore()
	require.NoError(t, err)
	items, err := s.ListIgnoredItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]models.IgnoredItem{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.Equal(t, models.ItemTypePR, byID["acme/app/pull/1"].Type)
	assert.Equal(t, "Fix login", byID["acme/app/pull/1"].Title)
	assert.Equal(t, "issue-42", byID["issue-42"].Title, "title defaults to the id")

	require.NoError(t, ignoredRun(testCmd()))
	assert.Contains(t, outString(), "acme/app/pull/1")
}

func TestIgnoreRun_UnknownType(t *testing.T) {
	testEnv(t)

	err := ignoreRun(testCmd(), "commit", "abc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown item type")
}

func TestIgnoreRun_EmptyID(t *testing.T) {
	testEnv(t)

	err := ignoreRun(testCmd(), "pr", "  ", "")
	require.Error(t, err)
}

func TestIgnoreRun_DryRun(t *testing.T) {
	testEnv(t)
	dryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, ignoreRun(testCmd(), "pr", "acme/app/pull/1", "Fix"))
	assert.Nil(t, dataStore, "dry-run must not open the database")
}

func TestUnignoreRun(t *testing.T) {
	testEnv(t)

	require.NoError(t, ignoreRun(testCmd(), "meeting", "evt-1", "Standup"))
	require.NoError(t, unignoreRun(testCmd(), "meeting", "evt-1"))
	// Unignoring twice is a no-op.
	require.NoError(t, unignoreRun(testCmd(), "meeting", "evt-1"))

	items, err := dataStore.ListIgnoredItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIgnoredRun_Empty(t *testing.T) {
	testEnv(t)

	require.NoError(t, ignoredRun(testCmd()))
	assert.Contains(t, outString(), "No ignored items")
}
