package scheduler

import (
	"context"
	"log/slog"

	"surfcast/internal/queue"
	"surfcast/internal/types"
)

// Enqueuer hands a location to the worker queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, batchID, locationID, reason string) error
}

// IndexPublisher uploads the public location index.
type IndexPublisher interface {
	PublishLocations(ctx context.Context, locations []types.LocationSummary) error
}

// Catalog is the location source the refresher walks.
type Catalog interface {
	All() []types.SurfLocation
	Get(id string) (types.SurfLocation, error)
	Summaries() []types.LocationSummary
}

// Refresher starts a refresh of every catalog location.
type Refresher struct {
	catalog Catalog
	queue   Enqueuer
	index   IndexPublisher
	inline  *Worker
	// singleLocation limits runs to the first catalog entry in development.
	singleLocation bool
	logger         *slog.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithQueue sends locations to q instead of processing them in process.
func WithQueue(q Enqueuer) RefresherOption {
	return func(r *Refresher) { r.queue = q }
}

// WithIndexPublisher publishes the location index on every run.
func WithIndexPublisher(p IndexPublisher) RefresherOption {
	return func(r *Refresher) { r.index = p }
}

// WithSingleLocation restricts refreshes to the first catalog entry.
func WithSingleLocation() RefresherOption {
	return func(r *Refresher) { r.singleLocation = true }
}

// NewRefresher creates a Refresher. Without WithQueue every location is
// processed synchronously by inline, which must then be non-nil.
func NewRefresher(catalog Catalog, inline *Worker, logger *slog.Logger, opts ...RefresherOption) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{catalog: catalog, inline: inline, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefreshAll publishes the location index and dispatches the selected
// locations. A failing location does not stop the others; the count of
// failures is returned in the result.
func (r *Refresher) RefreshAll(ctx context.Context, payload RefreshPayload) (RefreshResult, error) {
	reason := payload.Reason
	if reason == "" {
		reason = reasonScheduled
	}
	result := RefreshResult{BatchID: queue.NewBatchID()}

	targets, err := r.targets(payload.LocationIDs)
	if err != nil {
		return result, err
	}

	if r.index != nil {
		if err := r.index.PublishLocations(ctx, r.catalog.Summaries()); err != nil {
			return result, err
		}
	}

	for _, loc := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var dispatchErr error
		if r.queue != nil {
			dispatchErr = r.queue.Enqueue(ctx, result.BatchID, loc.ID, reason)
		} else {
			dispatchErr = r.inline.Process(ctx, loc)
		}
		if dispatchErr != nil {
			result.Failed++
			r.logger.ErrorContext(ctx, "refresh dispatch failed",
				"batch_id", result.BatchID,
				"location_id", loc.ID,
				"error", dispatchErr,
			)
			continue
		}
		result.Enqueued++
	}

	r.logger.InfoContext(ctx, "refresh dispatched",
		"batch_id", result.BatchID,
		"reason", reason,
		"enqueued", result.Enqueued,
		"failed", result.Failed,
		"inline", r.queue == nil,
	)
	return result, nil
}

func (r *Refresher) targets(ids []string) ([]types.SurfLocation, error) {
	if len(ids) > 0 {
		out := make([]types.SurfLocation, 0, len(ids))
		for _, id := range ids {
			loc, err := r.catalog.Get(id)
			if err != nil {
				return nil, err
			}
			out = append(out, loc)
		}
		return out, nil
	}

	all := r.catalog.All()
	if r.singleLocation && len(all) > 1 {
		all = all[:1]
	}
	return all, nil
}
