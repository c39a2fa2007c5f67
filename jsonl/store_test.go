package jsonl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/jsonl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *untangle.Result {
	groups := []*untangle.Group{
		{ID: "group0", Label: untangle.LabelNonSource, HunkIDs: []untangle.HunkID{"2:2"}},
		{ID: "group1", Label: untangle.LabelLinked, HunkIDs: []untangle.HunkID{"0:0", "1:0"}, CommitMessage: "Add totals"},
	}
	r := &untangle.Result{Groups: map[string]*untangle.Group{}, Index: map[untangle.HunkID]string{}}
	for _, g := range groups {
		r.Groups[g.ID] = g
		r.Order = append(r.Order, g.ID)
		for _, id := range g.HunkIDs {
			r.Index[id] = g.ID
		}
	}
	return r
}

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "groups.jsonl")
	store := jsonl.NewStore()
	require.NotEmpty(t, store.RunID)

	require.NoError(t, store.Save(path, sampleResult()))
	loaded, err := store.Load(path)

	require.NoError(t, err)
	assert.Equal(t, sampleResult(), loaded)
}

func TestStore_Save_Format(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "groups.jsonl")
	store := &jsonl.Store{RunID: "run-1"}

	require.NoError(t, store.Save(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"run_id":"run-1","position":0,"id":"group0","label":"non-source-changes","hunk_ids":["2:2"]}`, lines[0])
	assert.JSONEq(t, `{"run_id":"run-1","position":1,"id":"group1","label":"feature/linked","hunk_ids":["0:0","1:0"],"commit_message":"Add totals"}`, lines[1])
}

func TestStore_NewStore_UniqueRuns(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, jsonl.NewStore().RunID, jsonl.NewStore().RunID)
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields empty result", func(t *testing.T) {
		t.Parallel()

		r, err := jsonl.NewStore().Load(filepath.Join(t.TempDir(), "missing.jsonl"))

		require.NoError(t, err)
		assert.Empty(t, r.Order)
		assert.Empty(t, r.Groups)
	})

	t.Run("skips blank lines", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "groups.jsonl")
		content := `{"id":"group0","label":"other","hunk_ids":["0:0"]}` + "\n\n" +
			`{"id":"group1","label":"other","hunk_ids":["0:1"]}` + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		r, err := jsonl.NewStore().Load(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"group0", "group1"}, r.Order)
		assert.Equal(t, "group1", r.Index["0:1"])
	})

	t.Run("orders groups by position", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "groups.jsonl")
		content := `{"position":2,"id":"group2","label":"other","hunk_ids":["0:2"]}` + "\n" +
			`{"position":0,"id":"group0","label":"reformat-only","hunk_ids":["0:0"]}` + "\n" +
			`{"position":1,"id":"group1","label":"other","hunk_ids":["0:1"]}` + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		r, err := jsonl.NewStore().Load(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"group0", "group1", "group2"}, r.Order)
		assert.Equal(t, "group2", r.Index["0:2"])
	})

	t.Run("reports malformed line", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "groups.jsonl")
		content := `{"id":"group0","label":"other","hunk_ids":["0:0"]}` + "\n{oops\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := jsonl.NewStore().Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("rejects duplicate groups", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "groups.jsonl")
		line := `{"id":"group0","label":"other","hunk_ids":["0:0"]}` + "\n"
		require.NoError(t, os.WriteFile(path, []byte(line+line), 0o644))

		_, err := jsonl.NewStore().Load(path)

		assert.ErrorContains(t, err, "duplicate group group0")
	})
}
