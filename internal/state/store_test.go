package state

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestChangeListNames(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 20, 30, 999, time.FixedZone("CET", 3600))
	name := ChangeListName(ts)
	assert.Equal(t, "changelist_2024-03-01T09:20:30Z.xml", name)
	assert.True(t, IsChangeList(name))
	assert.False(t, IsChangeList("changelistarchive.xml"))

	got, err := ParseChangeListName(name)
	require.NoError(t, err)
	assert.Equal(t, ts.Truncate(time.Second).UTC(), got)
}

func TestEnsure(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")

	require.NoError(t, s.Ensure())
	ok, err := afero.DirExists(fs, "/srv/rs")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, afero.WriteFile(fs, "/srv/rs/.staging-resourcelist.xml", []byte("partial"), 0o644))
	require.NoError(t, s.Ensure())
	exists, _ := afero.Exists(fs, "/srv/rs/.staging-resourcelist.xml")
	assert.False(t, exists)

	require.NoError(t, afero.WriteFile(fs, "/srv/file", []byte("x"), 0o644))
	err = New(fs, "/srv/file").Ensure()
	require.Error(t, err)
	assert.True(t, rserrors.IsCategory(err, rserrors.CategoryDirectory))
}

func TestReset(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcelist.xml", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/sub/old.xml", []byte("x"), 0o644))
	txn := s.Begin()
	require.NoError(t, txn.Write("resourcelist.xml", writeString("new")))

	require.NoError(t, s.Reset())

	entries, err := afero.ReadDir(fs, "/srv/rs")
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the staged file survives")

	require.NoError(t, txn.Commit())
	data, err := s.ReadFile("resourcelist.xml")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestChangeListsAndLatest(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, s.Ensure())

	_, ok, err := s.Latest()
	require.NoError(t, err)
	assert.False(t, ok)

	for _, n := range []string{
		"changelist_2024-03-02T00:00:00Z.xml",
		"changelist_2023-12-31T23:59:59Z.xml",
		"changelist_2024-01-15T12:00:00Z.xml",
		"changelistarchive.xml",
		"resourcelist.xml",
	} {
		require.NoError(t, afero.WriteFile(fs, "/srv/rs/"+n, nil, 0o644))
	}

	all, err := s.ChangeLists()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "changelist_2023-12-31T23:59:59Z.xml", all[0].Name)

	latest, ok, err := s.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), latest.Until)

	require.NoError(t, afero.WriteFile(fs, "/srv/rs/changelist_yesterday.xml", nil, 0o644))
	_, _, err = s.Latest()
	require.Error(t, err)
	assert.True(t, rserrors.IsCategory(err, rserrors.CategoryDirectory))
}

func TestTxn_CommitPublishesInOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, s.Ensure())
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcelist.xml", []byte("old"), 0o644))

	tx := s.Begin()
	require.NoError(t, tx.Write("resourcelist.xml", writeString("new")))
	require.NoError(t, tx.WriteOnce("changelist_2024-01-01T00:00:00Z.xml", writeString("cl")))
	require.NoError(t, tx.Write("resourcelist.xml", writeString("newer")))

	size, err := tx.Size("resourcelist.xml")
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	assert.Equal(t, []string{"resourcelist.xml", "changelist_2024-01-01T00:00:00Z.xml"}, tx.Staged())

	old, err := s.ReadFile("resourcelist.xml")
	require.NoError(t, err)
	assert.Equal(t, "old", string(old), "nothing is visible before commit")

	require.NoError(t, tx.Commit())

	data, err := s.ReadFile("resourcelist.xml")
	require.NoError(t, err)
	assert.Equal(t, "newer", string(data))
	ok, _ := s.Exists("changelist_2024-01-01T00:00:00Z.xml")
	assert.True(t, ok)

	entries, _ := afero.ReadDir(fs, "/srv/rs")
	for _, e := range entries {
		assert.NotContains(t, e.Name(), stagingPrefix)
	}
}

func TestTxn_WriteOnceRefusesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, s.Ensure())
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/changelist_2024-01-01T00:00:00Z.xml", []byte("v1"), 0o644))

	err := s.Begin().WriteOnce("changelist_2024-01-01T00:00:00Z.xml", writeString("v2"))
	require.Error(t, err)

	data, _ := s.ReadFile("changelist_2024-01-01T00:00:00Z.xml")
	assert.Equal(t, "v1", string(data))
}

func TestTxn_RollbackAndFailedWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, s.Ensure())

	tx := s.Begin()
	require.NoError(t, tx.Write("capabilitylist.xml", writeString("cap")))
	boom := errors.New("boom")
	err := tx.Write("resourcelist.xml", func(io.Writer) error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, tx.Rollback())
	entries, err := afero.ReadDir(fs, "/srv/rs")
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, tx.Write("x.xml", writeString("x")))
}

func TestTxn_RemoveRunsAfterPublish(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/srv/rs")
	require.NoError(t, s.Ensure())
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcedump.zip", []byte("zip"), 0o644))

	tx := s.Begin()
	require.NoError(t, tx.Remove("resourcedump.zip"))
	require.NoError(t, tx.Remove("resourcedump.xml"))
	require.NoError(t, tx.Write("capabilitylist.xml", writeString("cap")))

	ok, _ := s.Exists("resourcedump.zip")
	assert.True(t, ok, "removal waits for commit")

	require.NoError(t, tx.Commit())
	ok, _ = s.Exists("resourcedump.zip")
	assert.False(t, ok)
	ok, _ = s.Exists("capabilitylist.xml")
	assert.True(t, ok)

	rolled := s.Begin()
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcedump.xml", []byte("rd"), 0o644))
	require.NoError(t, rolled.Remove("resourcedump.xml"))
	require.NoError(t, rolled.Rollback())
	ok, _ = s.Exists("resourcedump.xml")
	assert.True(t, ok, "rollback keeps published documents")
	assert.Error(t, rolled.Remove("resourcedump.xml"))
}
