package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	testCases := []struct {
		endpoint string
		expect   string
	}{
		{
			endpoint: "https://api.banco.com.br/open-banking/channels/v1/branches",
			expect:   "https://api.banco.com.br/open-banking/channels/v1/branches",
		},
		{
			endpoint: "HTTPS://API.Banco.com.br:443/open-banking/channels/v1/branches?page-size=25&page=2#top",
			expect:   "https://api.banco.com.br/open-banking/channels/v1/branches?page=2&page-size=25",
		},
		{
			endpoint: "https://api.banco.com.br/open-banking//products-services/v1/../v1/personal-loans",
			expect:   "https://api.banco.com.br/open-banking/products-services/v1/personal-loans",
		},
	}

	for _, test := range testCases {
		key, err := NewKey(test.endpoint, "participant", "20240826")
		require.NoError(t, err)
		require.Equal(t, test.expect, key.Endpoint)
	}

	_, err := NewKey("https://api.banco.com.br", "participant", "2024-08-26")
	require.Error(t, err)
}

func newTestKey(t *testing.T, endpoint, participant, day string) Key {
	t.Helper()
	key, err := NewKey(endpoint, participant, day)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	dir, err := NewDirStore(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		BackendDir:    dir,
		BackendBadger: NewBadgerStore(db),
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	endpoint := "https://api.banco.com.br/open-banking/channels/v1/branches"

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			key := newTestKey(t, endpoint, "org-a", "20240826")

			_, err := store.Get(ctx, key)
			require.ErrorIs(t, err, ErrNotFound)

			payload := []byte(`{"data":{"brand":{"name":"Banco"}}}`)
			require.NoError(t, store.Put(ctx, key, payload))

			cached, err := store.Get(ctx, key)
			require.NoError(t, err)
			require.Empty(t, cmp.Diff(payload, cached))

			// equivalent url, same entry
			equivalent := newTestKey(t, endpoint+"#fragment", "org-a", "20240826")
			cached, err = store.Get(ctx, equivalent)
			require.NoError(t, err)
			require.Equal(t, payload, cached)

			_, err = store.Get(ctx, newTestKey(t, endpoint, "org-b", "20240826"))
			require.ErrorIs(t, err, ErrNotFound)

			// a new day is always a miss
			_, err = store.Get(ctx, newTestKey(t, endpoint, "org-a", "20240827"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestPruneAndStats(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			entries := []Key{
				newTestKey(t, "https://a.com.br/open-banking/channels/v1/branches", "org-a", "20240825"),
				newTestKey(t, "https://a.com.br/open-banking/products-services/v1/personal-loans", "org-a", "20240825"),
				newTestKey(t, "https://a.com.br/open-banking/channels/v1/branches", "org-a", "20240826"),
				newTestKey(t, "https://data.directory.openbankingbrasil.org.br/participants", "directory", "20240826"),
				newTestKey(t, "https://b.com.br/open-banking/channels/v1/branches", "org-b", "20240826"),
			}
			for _, key := range entries {
				require.NoError(t, store.Put(ctx, key, []byte(`{}`)))
			}

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			require.Equal(t, []DayStats{
				{Day: "20240825", Entries: 2, Bytes: 4},
				{Day: "20240826", Entries: 3, Bytes: 6},
			}, stats)

			removed, err := store.Prune(ctx, "20240826")
			require.NoError(t, err)
			require.Equal(t, 2, removed)

			stats, err = store.Stats(ctx)
			require.NoError(t, err)
			require.Equal(t, []DayStats{{Day: "20240826", Entries: 3, Bytes: 6}}, stats)

			_, err = store.Get(ctx, entries[0])
			require.ErrorIs(t, err, ErrNotFound)
			_, err = store.Get(ctx, entries[2])
			require.NoError(t, err)
		})
	}
}

func TestDirStoreFilename(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	store, err := NewDirStore(root)
	require.NoError(t, err)

	key := newTestKey(t, "https://a.com.br/open-banking/channels/v1/branches", "../org/a", "20240826")
	require.NoError(t, store.Put(context.Background(), key, []byte(`[]`)))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	name := entries[0].Name()
	require.Regexp(t, `^20240826-__org_a-[0-9a-f]{16}\.json$`, name)

	// files that aren't entries are left alone
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0600))
	removed, err := store.Prune(context.Background(), "20240901")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = os.Stat(filepath.Join(root, "README"))
	require.NoError(t, err)
}

func TestOpen(t *testing.T) {
	store, err := Open(BackendNone, "")
	require.NoError(t, err)
	key := newTestKey(t, "https://a.com.br", "org-a", "20240826")
	require.NoError(t, store.Put(context.Background(), key, []byte(`{}`)))
	_, err = store.Get(context.Background(), key)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Open("redis", "")
	require.Error(t, err)

	_, err = Open(BackendDir, "")
	require.Error(t, err)
}
