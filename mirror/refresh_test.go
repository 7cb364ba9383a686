package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	didprism "github.com/did-method-prism/go-didprism"
	"github.com/did-method-prism/go-didprism/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresher(t *testing.T, ts *httptest.Server, st *store.GormSnapshotStore) *Refresher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := didprism.NewClient(ts.Client(), didprism.ClientConfig{
		ResolverURL: ts.URL,
		UserAgent:   "go-didprism/test",
	})
	require.NoError(t, err)
	return NewRefresher(st, client, "mainnet", time.Hour, 1, logger)
}

func TestSeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mainnet", r.URL.Query().Get("ledger"))
		fmt.Fprint(w, `{"didDocument": {"id": "did:prism:abc123"}, "didDocumentMetadata": {"versionId": "1"}}`)
	}))
	defer ts.Close()

	st := newTestStore(t)
	r := newTestRefresher(t, ts, st)

	ctx := context.Background()
	require.NoError(t, r.Seed(ctx, []string{"did:prism:abc123"}))

	rec, err := st.Get(ctx, "did:prism:abc123", "mainnet")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, `{"id": "did:prism:abc123"}`, string(rec.Body))
	assert.False(t, rec.Deactivated)
	assert.WithinDuration(t, time.Now(), rec.ResolvedAt, time.Minute)
}

func TestSeed_Deactivated(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"didDocumentMetadata": {"deactivated": true}}`)
	}))
	defer ts.Close()

	st := newTestStore(t)
	r := newTestRefresher(t, ts, st)

	ctx := context.Background()
	require.NoError(t, r.Seed(ctx, []string{"did:prism:gone"}))

	rec, err := st.Get(ctx, "did:prism:gone", "mainnet")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Deactivated)
}

func TestSeed_SkipsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1.0/identifiers/did:prism:bad" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"not found"}`)
			return
		}
		fmt.Fprint(w, `{"didDocument": {"id": "did:prism:good"}}`)
	}))
	defer ts.Close()

	st := newTestStore(t)
	r := newTestRefresher(t, ts, st)

	ctx := context.Background()
	require.NoError(t, r.Seed(ctx, []string{"did:prism:bad", "did:prism:good"}))

	rec, err := st.Get(ctx, "did:prism:bad", "mainnet")
	require.NoError(t, err)
	assert.Nil(t, rec, "failed seed should not be stored")

	rec, err = st.Get(ctx, "did:prism:good", "mainnet")
	require.NoError(t, err)
	assert.NotNil(t, rec, "one bad DID must not block the rest")
}

func TestRefreshOne_EmptyBodyKeepsSnapshot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	st := newTestStore(t)
	r := newTestRefresher(t, ts, st)
	ctx := context.Background()

	prev := store.SnapshotRecord{
		DID: "did:prism:abc123", Ledger: "mainnet", ContentType: "application/did+ld+json",
		Body: []byte(`{"id": "did:prism:abc123"}`), ResolvedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, st.Put(ctx, &prev))

	require.Error(t, r.refreshOne(ctx, "did:prism:abc123"), "empty success body is not a usable snapshot")

	rec, err := st.Get(ctx, "did:prism:abc123", "mainnet")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, `{"id": "did:prism:abc123"}`, string(rec.Body), "previous snapshot should survive")
	assert.Equal(t, prev.ResolvedAt.Unix(), rec.ResolvedAt.Unix())
}

func TestScanOnce_EnqueuesStale(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{}")
	}))
	defer ts.Close()

	st := newTestStore(t)
	r := newTestRefresher(t, ts, st)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, &store.SnapshotRecord{
		DID: "did:prism:stale", Ledger: "mainnet", ContentType: "application/did+ld+json",
		Body: []byte("{}"), ResolvedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, st.Put(ctx, &store.SnapshotRecord{
		DID: "did:prism:fresh", Ledger: "mainnet", ContentType: "application/did+ld+json",
		Body: []byte("{}"), ResolvedAt: time.Now(),
	}))
	require.NoError(t, st.Put(ctx, &store.SnapshotRecord{
		DID: "did:prism:other", Ledger: "preprod", ContentType: "application/did+ld+json",
		Body: []byte("{}"), ResolvedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	queue := make(chan string, 10)
	require.NoError(t, r.scanOnce(ctx, queue))

	require.Len(t, queue, 1, "only the stale mainnet snapshot should be enqueued")
	assert.Equal(t, "did:prism:stale", <-queue)

	// Still in-flight, so a second scan must not enqueue it again
	require.NoError(t, r.scanOnce(ctx, queue))
	assert.Len(t, queue, 0)
}

func TestRun_RefreshesStale(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"didDocument": {"id": "did:prism:stale"}}`)
	}))
	defer ts.Close()

	st := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := didprism.NewClient(ts.Client(), didprism.ClientConfig{ResolverURL: ts.URL})
	require.NoError(t, err)

	// maxAge of 4s gives a 1s scan interval
	r := NewRefresher(st, client, "mainnet", 4*time.Second, 1, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, st.Put(ctx, &store.SnapshotRecord{
		DID: "did:prism:stale", Ledger: "mainnet", ContentType: "application/did+ld+json",
		Body: []byte("{}"), ResolvedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		rec, err := st.Get(context.Background(), "did:prism:stale", "mainnet")
		return err == nil && rec != nil && time.Since(rec.ResolvedAt) < time.Minute
	}, 10*time.Second, 100*time.Millisecond, "stale snapshot should get refreshed")

	assert.GreaterOrEqual(t, calls.Load(), int64(1))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}
