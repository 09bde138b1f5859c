package repository

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleItems() []*Item {
	return []*Item{
		{
			ID:           1,
			Handle:       "123/45",
			LastModified: t0,
			Collections:  []Collection{{Handle: "123/1", Name: "Theses"}},
			Bundles: []Bundle{
				{Name: "ORIGINAL", Bitstreams: []Bitstream{
					{ID: 10, SequenceID: 1, Name: "paper.pdf", MIMEType: "application/pdf", Size: 5, Checksum: "abc", ChecksumAlgorithm: "MD5", StorageKey: "k10"},
					{ID: 11, SequenceID: 2, Name: "data.csv", MIMEType: "text/csv", Size: 3, StorageKey: "k11"},
				}},
				{Name: "LICENSE", Bitstreams: []Bitstream{
					{ID: 12, SequenceID: 3, Name: "license.txt", StorageKey: "k12"},
				}},
				{Name: "EMPTY"},
			},
			Metadata: []MetadataValue{
				{Schema: "dc", Element: "title", Value: "A paper"},
				{Schema: "dc", Element: "contributor", Qualifier: "author", Value: "Doe, Jane"},
			},
		},
		{ID: 2, Handle: "123/46", LastModified: t0.Add(time.Hour), Withdrawn: true},
		{ID: 3, Handle: "123/47", LastModified: t0.Add(2 * time.Hour), Restricted: true},
		{ID: 4, Handle: "123/48", LastModified: t0.Add(3 * time.Hour)},
	}
}

type memAssets map[string][]byte

func (m memAssets) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// implementations runs the same assertions against both repositories.
func implementations(t *testing.T) map[string]Repository {
	t.Helper()

	mem := NewMemory()
	mem.SetContent("k10", []byte("%PDF-"))

	sq, err := NewSQLite(":memory:", memAssets{"k10": []byte("%PDF-")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	for _, it := range sampleItems() {
		mem.Put(it)
		require.NoError(t, sq.Insert(t.Context(), it))
	}
	return map[string]Repository{"memory": mem, "sqlite": sq}
}

func handles(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Handle
	}
	return out
}

func TestRepository_Items(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			items, err := repo.Items(t.Context(), ItemQuery{})
			require.NoError(t, err)
			assert.Equal(t, []string{"123/45", "123/48"}, handles(items))

			all, err := repo.Items(t.Context(), ItemQuery{IncludeRestricted: true})
			require.NoError(t, err)
			assert.Equal(t, []string{"123/45", "123/47", "123/48"}, handles(all))

			first := items[0]
			assert.Equal(t, t0, first.LastModified)
			require.Len(t, first.Bundles, 3)
			assert.Equal(t, "ORIGINAL", first.Bundles[0].Name)
			assert.Equal(t, []string{"paper.pdf", "data.csv"}, []string{first.Bundles[0].Bitstreams[0].Name, first.Bundles[0].Bitstreams[1].Name})
			assert.Empty(t, first.Bundles[2].Bitstreams)
			assert.Equal(t, []Collection{{Handle: "123/1", Name: "Theses"}}, first.Collections)
			assert.Equal(t, []string{"Doe, Jane"}, first.Values("dc.contributor"))
		})
	}
}

func TestRepository_Changed(t *testing.T) {
	cases := []struct {
		name string
		q    ChangeQuery
		want []string
	}{
		{
			name: "half open window",
			q:    ChangeQuery{From: t0, Until: t0.Add(3 * time.Hour), IncludeWithdrawn: true},
			want: []string{"123/45", "123/46"},
		},
		{
			name: "restricted included",
			q:    ChangeQuery{From: t0, Until: t0.Add(4 * time.Hour), IncludeWithdrawn: true, IncludeRestricted: true},
			want: []string{"123/45", "123/46", "123/47", "123/48"},
		},
		{
			name: "withdrawn excluded",
			q:    ChangeQuery{From: t0.Add(time.Hour), Until: t0.Add(4 * time.Hour)},
			want: []string{"123/48"},
		},
		{
			name: "empty window",
			q:    ChangeQuery{From: t0, Until: t0, IncludeWithdrawn: true},
			want: []string{},
		},
	}
	for name, repo := range implementations(t) {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				items, err := repo.Changed(t.Context(), tc.q)
				require.NoError(t, err)
				assert.Equal(t, tc.want, handles(items))
			})
		}
	}
}

func TestRepository_ItemAndBitstream(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			it, err := repo.Item(t.Context(), "123/45")
			require.NoError(t, err)

			rc, err := repo.OpenBitstream(t.Context(), &it.Bundles[0].Bitstreams[0])
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "%PDF-", string(data))

			_, err = repo.OpenBitstream(t.Context(), &it.Bundles[0].Bitstreams[1])
			assert.True(t, IsNotFound(err))

			_, err = repo.Item(t.Context(), "999/1")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestRepository_ItemByID(t *testing.T) {
	orphans := []*Item{
		{ID: 7, LastModified: t0},
		{ID: 8, LastModified: t0.Add(time.Hour)},
	}
	mem := NewMemory()
	sq, err := NewSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	for _, it := range orphans {
		mem.Put(it)
		require.NoError(t, sq.Insert(t.Context(), it))
	}

	for name, repo := range map[string]Repository{"memory": mem, "sqlite": sq} {
		t.Run(name, func(t *testing.T) {
			it, err := repo.ItemByID(t.Context(), 8)
			require.NoError(t, err)
			assert.Equal(t, int64(8), it.ID)
			assert.Empty(t, it.Handle)

			_, err = repo.ItemByID(t.Context(), 99)
			assert.True(t, IsNotFound(err))

			// An empty handle never matches a handle-less item.
			_, err = repo.Item(t.Context(), "")
			assert.True(t, IsNotFound(err))

			all, err := repo.Items(t.Context(), ItemQuery{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestSQLite_InsertReplaces(t *testing.T) {
	sq, err := NewSQLite(":memory:", nil)
	require.NoError(t, err)
	defer sq.Close()

	it := sampleItems()[0]
	require.NoError(t, sq.Insert(t.Context(), it))

	it.Bundles = it.Bundles[:1]
	it.Metadata = nil
	require.NoError(t, sq.Insert(t.Context(), it))

	got, err := sq.Item(t.Context(), it.Handle)
	require.NoError(t, err)
	assert.Len(t, got.Bundles, 1)
	assert.Empty(t, got.Metadata)
}

func TestMetadataValueField(t *testing.T) {
	assert.Equal(t, "dc.title", MetadataValue{Schema: "dc", Element: "title"}.Field())
	assert.Equal(t, "dc.date.issued", MetadataValue{Schema: "dc", Element: "date", Qualifier: "issued"}.Field())
}
