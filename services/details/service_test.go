package details

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/testutil"

	"github.com/stretchr/testify/require"
)

// fakeUpstream serves the index and detail endpoints from memory and
// records every detail lookup it sees.
type fakeUpstream struct {
	mu             sync.Mutex
	ids            []int
	failing        map[int]bool
	detailRequests []int
	// called with the id and the total number of detail requests so
	// far, before the response is written
	onDetail func(id, nth int)
}

func (f *fakeUpstream) detailCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detailRequests)
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{}
		f.mu.Lock()
		for _, id := range f.ids {
			data[strconv.Itoa(id)] = map[string]any{}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("item"))

		f.mu.Lock()
		f.detailRequests = append(f.detailRequests, id)
		nth := len(f.detailRequests)
		failing := f.failing[id]
		callback := f.onDetail
		f.mu.Unlock()

		if callback != nil {
			callback(id, nth)
		}
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"item": map[string]any{
			"id":          id,
			"name":        fmt.Sprintf("Item %d", id),
			"description": "A test item.",
			"members":     "true",
		}})
	})
	return mux
}

func newFakeClient(t *testing.T, upstream *fakeUpstream) *geapi.Client {
	srv := httptest.NewServer(upstream.handler())
	t.Cleanup(srv.Close)
	return geapi.NewClient(geapi.Config{
		Endpoints: geapi.Endpoints{
			Index:   srv.URL + "/index",
			Details: srv.URL + "/detail",
			Prices:  srv.URL + "/prices",
		},
		UserAgent: "osrs-economy test suite",
	})
}

var fastConfig = Config{WaitSeconds: 0.001}

func TestServiceHappyPath(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name: "services/details/happy",
	})
	defer cleanup()
	store := newLocalStore(t, setup.Dir)

	upstream := &fakeUpstream{ids: []int{3, 1, 2}}
	client := newFakeClient(t, upstream)
	service := NewService(client, store, progress.Noop{}, fastConfig)

	ctx := context.Background()

	doc, err := service.Run(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Items, 3)
	require.Empty(t, doc.Invalid)
	require.Equal(t, 3, upstream.detailCount())

	persisted := LoadDocument(ctx, store)
	require.Equal(t, []int{1, 2, 3}, persisted.IDs())
	require.Equal(t, "Item 2", persisted.Items["2"].Name)
}

func TestServiceSecondRunIsIdempotent(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name: "services/details/idempotent",
	})
	defer cleanup()
	store := newLocalStore(t, setup.Dir)

	upstream := &fakeUpstream{ids: []int{1, 2, 3}}
	client := newFakeClient(t, upstream)
	service := NewService(client, store, progress.Noop{}, fastConfig)

	ctx := context.Background()

	_, err := service.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, upstream.detailCount())

	// everything is fresh, so the second run issues no detail requests
	_, err = service.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, upstream.detailCount())
}

func TestServiceRecordsInvalidID(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name: "services/details/invalid",
	})
	defer cleanup()
	store := newLocalStore(t, setup.Dir)

	upstream := &fakeUpstream{
		ids:     []int{4, 5},
		failing: map[int]bool{5: true},
	}
	client := newFakeClient(t, upstream)
	service := NewService(client, store, progress.Noop{}, fastConfig)

	ctx := context.Background()

	doc, err := service.Run(ctx)
	require.NoError(t, err)
	require.Contains(t, doc.Invalid, 5)
	require.NotContains(t, doc.Items, "5")
	require.Contains(t, doc.Items, "4")

	persisted := LoadDocument(ctx, store)
	require.Equal(t, []int{5}, persisted.Invalid)

	// invalid ids are excluded from later runs entirely
	_, err = service.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, upstream.detailCount())
}

func TestFetchInterruptionCheckpoints(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name: "services/details/interrupt",
	})
	defer cleanup()
	store := newLocalStore(t, setup.Dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := &fakeUpstream{ids: []int{1, 2, 3, 4, 5}}
	upstream.onDetail = func(id, nth int) {
		// simulate Ctrl+C while the second item is in flight: the
		// item's result must still be committed before the loop stops
		if nth == 2 {
			cancel()
		}
	}
	client := newFakeClient(t, upstream)
	service := NewService(client, store, progress.Noop{}, fastConfig)

	doc, err := service.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, upstream.detailCount())
	require.Len(t, doc.Items, 2)

	persisted := LoadDocument(context.Background(), store)
	require.Equal(t, []int{1, 2}, persisted.IDs())
	require.Empty(t, persisted.Invalid)
}
