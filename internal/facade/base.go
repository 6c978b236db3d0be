package facade

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/metrics"
	"suivi/internal/store"
)

type Option func(o *options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// base holds the state cell shared by every facade and the request
// bookkeeping around it. Its exported methods are the read channels.
type base[E any] struct {
	family   string
	state    *store.Store[string, E]
	identity identity.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func newBase[E any](family string, key func(E) string, id identity.Provider, o options) *base[E] {
	return &base[E]{
		family:   family,
		state:    store.New(key),
		identity: id,
		logger:   o.logger.With("family", family),
		metrics:  o.metrics,
	}
}

// Items returns the cached collection in order.
func (b *base[E]) Items() []E { return b.state.Items() }

// Get returns the cached entity with id.
func (b *base[E]) Get(id string) (E, bool) { return b.state.Get(id) }

// Selected returns a copy of the focused entity, or nil.
func (b *base[E]) Selected() *E { return b.state.Selected() }

// Loading reports whether any request of this facade is in flight.
func (b *base[E]) Loading() bool { return b.state.Loading() }

// Err returns the last published error.
func (b *base[E]) Err() error { return b.state.Err() }

func (b *base[E]) ErrorMessage() string { return b.state.State().ErrorMessage() }

func (b *base[E]) State() store.State[E] { return b.state.State() }

// Subscribe calls fn with every subsequent state. The returned func cancels.
func (b *base[E]) Subscribe(fn func(store.State[E])) func() { return b.state.Subscribe(fn) }

// Select focuses item, or clears the focus when item is nil.
func (b *base[E]) Select(item *E) { b.state.Select(item) }

func (b *base[E]) Deselect() { b.state.Select(nil) }

func (b *base[E]) ClearError() { b.state.ClearError() }

// Clear resets collection, selection and error.
func (b *base[E]) Clear() { b.state.Clear() }

func (b *base[E]) viewer(op string) (domain.Viewer, error) {
	if b.identity == nil {
		return domain.Viewer{}, b.reject(op, identity.ErrNoSession)
	}
	v, err := b.identity.Viewer()
	if err != nil {
		return domain.Viewer{}, b.reject(op, err)
	}
	return v, nil
}

// reject publishes a guard failure without issuing a request.
func (b *base[E]) reject(op string, err error) error {
	b.logger.Debug("operation rejected", "op", op, "error", err)
	b.metrics.Rejected(b.family, op)
	b.state.Reject(err)
	return err
}

func (b *base[E]) fail(op string, err error, start time.Time) error {
	b.metrics.Observe(b.family, op, err, time.Since(start))
	b.logger.Warn("request failed", "op", op, "error", err)
	b.state.Fail(err)
	return err
}

func (b *base[E]) succeed(op string, start time.Time) {
	b.metrics.Observe(b.family, op, nil, time.Since(start))
	b.metrics.SetCacheSize(b.family, b.state.Len())
}

// load replaces the collection with fetch's result. On failure the cache keeps
// its previous contents.
func (b *base[E]) load(ctx context.Context, op string, fetch func(context.Context) ([]E, error)) error {
	b.logger.Debug("request", "op", op)
	b.state.Begin()
	start := time.Now()
	items, err := fetch(ctx)
	if err != nil {
		return b.fail(op, err, start)
	}
	b.state.ReplaceAll(items)
	b.succeed(op, start)
	return nil
}

// loadMany fetches every id concurrently and replaces the collection with the
// results flattened in id order. The first failure cancels the rest and is the
// only error published. No ids means an empty collection and no request.
func (b *base[E]) loadMany(ctx context.Context, op string, ids []string, fetch func(context.Context, string) ([]E, error)) error {
	if len(ids) == 0 {
		b.state.Reset()
		return nil
	}
	return b.load(ctx, op, func(ctx context.Context) ([]E, error) {
		g, gctx := errgroup.WithContext(ctx)
		results := make([][]E, len(ids))
		for i, id := range ids {
			g.Go(func() error {
				items, err := fetch(gctx, id)
				if err != nil {
					return err
				}
				results[i] = items
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		total := 0
		for _, r := range results {
			total += len(r)
		}
		out := make([]E, 0, total)
		for _, r := range results {
			out = append(out, r...)
		}
		return out, nil
	})
}

// mutate runs call and hands the server-confirmed entity to apply. Nothing is
// applied locally before the server answers.
func (b *base[E]) mutate(ctx context.Context, op string, call func(context.Context) (E, error), apply func(E)) (E, error) {
	b.logger.Debug("request", "op", op)
	b.state.Begin()
	start := time.Now()
	item, err := call(ctx)
	if err != nil {
		var zero E
		return zero, b.fail(op, err, start)
	}
	apply(item)
	b.succeed(op, start)
	return item, nil
}

func (b *base[E]) remove(ctx context.Context, op, id string, call func(context.Context) error) error {
	b.logger.Debug("request", "op", op, "id", id)
	b.state.Begin()
	start := time.Now()
	if err := call(ctx); err != nil {
		return b.fail(op, err, start)
	}
	b.state.Remove(id)
	b.succeed(op, start)
	return nil
}

// lookup returns the entity with id from the cache, then the selection, then
// the repository. A failed fetch is published like any other request failure.
func (b *base[E]) lookup(ctx context.Context, op, id string, key func(E) string, fetch func(context.Context, string) (E, error)) (E, error) {
	if item, ok := b.state.Get(id); ok {
		return item, nil
	}
	if sel := b.state.Selected(); sel != nil && key(*sel) == id {
		return *sel, nil
	}
	b.state.Begin()
	start := time.Now()
	item, err := fetch(ctx, id)
	if err != nil {
		var zero E
		return zero, b.fail(op, err, start)
	}
	b.metrics.Observe(b.family, op, nil, time.Since(start))
	b.state.Finish()
	return item, nil
}
