package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyChallengesAPI/internal/docstore"
)

func memoryOpener(store *docstore.MemoryStore) storeOpener {
	return func(ctx context.Context) (docstore.ChallengeStore, func() error, error) {
		return store, store.Close, nil
	}
}

func run(t *testing.T, store *docstore.MemoryStore, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(memoryOpener(store))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportThenList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[templates]]
id = "journal"
title = "Write a journal entry"
challenge = "Write three sentences about your day."
`), 0o644))

	store := docstore.NewMemoryStore()

	out, err := run(t, store, "import", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 templates")

	out, err = run(t, store, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "journal")
	assert.Contains(t, out, "Write a journal entry")
}

func TestImportMissingFile(t *testing.T) {
	_, err := run(t, docstore.NewMemoryStore(), "import", "--file", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
