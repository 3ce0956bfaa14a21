package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	locations := Resolve(Config{
		Buckets: BucketConfig{Details: "details-bucket", Prices: "prices-bucket", Icons: "icons-bucket"},
	}, created)

	require.Equal(t, "details.json", locations[KindDetails].Filename)
	require.Equal(t, "prices_2024-06-01T12:30:00.json", locations[KindPrices].Filename)
	require.Equal(t, "details-bucket", locations[KindDetails].Bucket)
	require.Equal(t, "icons-bucket", locations[KindIcons].Bucket)
}

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, Resolve(Config{}, time.Now()))

	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	err := store.Save(ctx, KindDetails, payload{Name: "whip", Count: 3})
	require.NoError(t, err)

	var out payload
	err = store.Load(ctx, KindDetails, &out)
	require.NoError(t, err)
	require.Equal(t, payload{Name: "whip", Count: 3}, out)

	// saved documents are indented for stable diffs
	raw, err := os.ReadFile(filepath.Join(dir, "details.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "\n    \"name\"")
}

func TestLocalLoadMissing(t *testing.T) {
	store := NewLocal(t.TempDir(), Resolve(Config{}, time.Now()))

	var out map[string]any
	err := store.Load(context.Background(), KindDetails, &out)
	require.ErrorIs(t, err, ErrNotExist)
}

func TestLocalLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "details.json"), []byte("{broken"), 0644)
	require.NoError(t, err)

	store := NewLocal(dir, Resolve(Config{}, time.Now()))

	var out map[string]any
	err = store.Load(context.Background(), KindDetails, &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotExist)
}

func TestLocalPutBytes(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, Resolve(Config{}, time.Now()))

	err := store.PutBytes(context.Background(), KindIcons, "images/4151.gif", []byte{0x47, 0x49, 0x46}, "image/gif")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "images", "4151.gif"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x47, 0x49, 0x46}, raw)
}

func TestFromConfig(t *testing.T) {
	locations := Resolve(Config{}, time.Now())

	store, err := FromConfig(Config{Mode: ModeLocal, DataDir: t.TempDir()}, locations)
	require.NoError(t, err)
	require.IsType(t, &Local{}, store)

	_, err = FromConfig(Config{Mode: "ftp"}, locations)
	require.Error(t, err)
}
