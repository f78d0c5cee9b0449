package watchlist

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/store"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestDefaults(t *testing.T) {
	f, err := Defaults()
	require.NoError(t, err)

	require.Len(t, f.Watchlists[DefaultList], 20)
	assert.Equal(t, "1155", f.Watchlists[DefaultList][0])
	assert.Contains(t, f.Watchlists[DefaultList], "0123")
	assert.Len(t, f.Watchlists["us"], 14)

	assert.Equal(t, "MAYBANK", DisplayName("1155"))
	assert.Equal(t, "Apple Inc.", DisplayName("aapl"))
	assert.Equal(t, "9999", DisplayName("9999"))
}

func TestSeedOnlyIntoEmptyStore(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	n, err := Seed(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 34, n)

	list, err := st.GetWatchlist(ctx, DefaultList)
	require.NoError(t, err)
	assert.Equal(t, "1155", list[0])

	n, err = Seed(ctx, st)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportExport(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	doc := `
watchlists:
  banks: ["1155", "1023"]
  tech: [NVDA, "0123"]
`
	n, err := Import(ctx, st, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var buf bytes.Buffer
	require.NoError(t, Export(ctx, st, &buf))

	out := newStore(t)
	_, err = Import(ctx, out, &buf)
	require.NoError(t, err)

	lists, err := out.GetAllWatchlists(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"banks": {"1155", "1023"},
		"tech":  {"NVDA", "0123"},
	}, lists)
}

func TestExportIncludesKnownNames(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.AddToWatchlist(ctx, "1155", "a"))
	require.NoError(t, st.AddToWatchlist(ctx, "1155", "b"))

	var buf bytes.Buffer
	require.NoError(t, Export(ctx, st, &buf))
	assert.Equal(t, 1, strings.Count(buf.String(), "MAYBANK"))
}

func TestImportRejectsGarbage(t *testing.T) {
	_, err := Import(context.Background(), newStore(t), strings.NewReader("watchlists: [oops"))
	assert.Error(t, err)
}
