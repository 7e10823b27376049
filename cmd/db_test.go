package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBReset_ClearsOverrides(t *testing.T) {
	testEnv(t)

	require.NoError(t, ignoreRun(testCmd(), "pr", "acme/app/pull/1", "Fix"))
	require.NoError(t, noteSetRun(testCmd(), "pr", "acme/app/pull/1", "done", "shipped"))

	require.NoError(t, dbResetCmd.RunE(testCmd(), nil))

	items, err := dataStore.ListIgnoredItems(testCmd().Context())
	require.NoError(t, err)
	assert.Empty(t, items)
	notes, err := dataStore.ListNotes(testCmd().Context())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestDBReset_DryRun(t *testing.T) {
	testEnv(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, dbResetCmd.RunE(testCmd(), nil))
	assert.Nil(t, dataStore)
}
