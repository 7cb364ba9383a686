package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	didprism "github.com/did-method-prism/go-didprism"
	"github.com/did-method-prism/go-didprism/store"
)

const (
	// scanBatchSize limits how many stale snapshots one scan pass enqueues.
	scanBatchSize = 1000

	// refreshQueueSize is the capacity of the worker feed channel.
	refreshQueueSize = 1000
)

// Refresher keeps the snapshot store current by periodically
// re-resolving stale DIDs through the client with a pool of workers.
type Refresher struct {
	store      *store.GormSnapshotStore
	client     *didprism.Client
	ledger     string
	maxAge     time.Duration
	numWorkers int
	infl       *InFlight
	logger     *slog.Logger
}

// NewRefresher creates a Refresher. maxAge is how old a snapshot may
// get before it is re-resolved.
func NewRefresher(st *store.GormSnapshotStore, client *didprism.Client, ledger string, maxAge time.Duration, numWorkers int, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:      st,
		client:     client,
		ledger:     ledger,
		maxAge:     maxAge,
		numWorkers: numWorkers,
		infl:       NewInFlight(),
		logger:     logger.With("component", "refresher"),
	}
}

// Seed resolves and stores each DID immediately, registering DIDs the
// mirror has never seen. Individual failures are logged and skipped so
// one bad DID doesn't block the rest of the seed list.
func (r *Refresher) Seed(ctx context.Context, dids []string) error {
	for _, did := range dids {
		if err := r.refreshOne(ctx, did); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("failed to seed DID", "did", did, "error", err)
		}
	}
	return nil
}

// Run executes the refresh pipeline until the context is cancelled:
// a scan loop finds stale snapshots and feeds them to worker
// goroutines, which re-resolve and upsert them.
func (r *Refresher) Run(ctx context.Context) error {
	queue := make(chan string, refreshQueueSize)

	for range r.numWorkers {
		go r.refreshWorker(ctx, queue)
	}

	// Scan at a fraction of maxAge so staleness overshoot stays small
	scanInterval := r.maxAge / 4
	if scanInterval < time.Second {
		scanInterval = time.Second
	}

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.scanOnce(ctx, queue); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Error("scan failed", "error", err)
			}
			RefreshQueueGauge.Record(ctx, int64(len(queue)))
			if n, err := r.store.Count(ctx); err == nil {
				SnapshotCountGauge.Record(ctx, n)
			}
		}
	}
}

func (r *Refresher) scanOnce(ctx context.Context, queue chan<- string) error {
	cutoff := time.Now().Add(-r.maxAge)
	stale, err := r.store.ListStale(ctx, cutoff, scanBatchSize)
	if err != nil {
		return err
	}

	for _, rec := range stale {
		if rec.Ledger != r.ledger {
			continue
		}
		if !r.infl.Add(rec.DID) {
			// already queued or being refreshed
			continue
		}
		select {
		case queue <- rec.DID:
		case <-ctx.Done():
			r.infl.Remove(rec.DID)
			return ctx.Err()
		}
	}
	return nil
}

func (r *Refresher) refreshWorker(ctx context.Context, queue <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case did, ok := <-queue:
			if !ok {
				return
			}
			if err := r.refreshOne(ctx, did); err != nil {
				r.logger.Warn("refresh failed", "did", did, "error", err)
				RefreshErrorsCounter.Add(ctx, 1)
			}
			r.infl.Remove(did)
		}
	}
}

// refreshOne resolves a single DID and upserts its snapshot. A
// ResolutionError from the resolver is an error here too: the previous
// snapshot stays in place and the DID is retried on a later scan.
func (r *Refresher) refreshOne(ctx context.Context, did string) error {
	res, err := r.client.ResolveResult(ctx, did, nil, r.ledger)
	if err != nil {
		return err
	}

	deactivated := res.DocumentMetadata != nil && res.DocumentMetadata.Deactivated

	// An empty success body parses to a nil document. Unless the DID is
	// deactivated that is not a usable snapshot; keep the previous one.
	if res.Document == nil && !deactivated {
		return fmt.Errorf("resolver returned no document for %s", did)
	}

	body, err := json.Marshal(res.Document)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	rec := store.SnapshotRecord{
		DID:         did,
		Ledger:      r.ledger,
		ContentType: didprism.AcceptDIDLDJSON,
		Body:        body,
		Deactivated: deactivated,
		ResolvedAt:  time.Now(),
	}
	if err := r.store.Put(ctx, &rec); err != nil {
		return err
	}

	LastRefreshTsGauge.Record(ctx, rec.ResolvedAt.Unix())
	r.logger.Debug("refreshed snapshot", "did", did, "deactivated", deactivated)
	return nil
}
