package resolver

import (
	"context"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/singleflight"

	"xdao.co/cred/cred"
	"xdao.co/cred/fetch"
)

// Options configures a Resolver. Zero values select the public defaults.
type Options struct {
	Fetcher       fetch.Fetcher
	Cache         *Cache
	DNSEndpoint   string
	KeyRepository string

	// Steps replaces the default DNS, URL, repository chain.
	Steps []Step
}

func (o Options) withDefaults() Options {
	if o.Fetcher == nil {
		o.Fetcher = fetch.New(0)
	}
	if o.Cache == nil {
		o.Cache = NewCache()
	}
	if o.Steps == nil {
		o.Steps = []Step{
			DNSStep{Fetcher: o.Fetcher, Endpoint: o.DNSEndpoint},
			URLStep{Fetcher: o.Fetcher},
			RepoStep{Fetcher: o.Fetcher, Base: o.KeyRepository},
		}
	}
	return o
}

// Resolver is safe for concurrent use. Concurrent resolutions of the same
// uncached key share one walk of the chain.
type Resolver struct {
	cache *Cache
	steps []Step
	group singleflight.Group
}

func New(opts Options) *Resolver {
	opts = opts.withDefaults()
	return &Resolver{cache: opts.Cache, steps: opts.Steps}
}

// Cache returns the resolver's cache, e.g. for seeding or snapshotting.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns the key record for keyID, or a cred.KindNotFound error
// when every source failed.
func (r *Resolver) Resolve(ctx context.Context, keyID string) (KeyRecord, error) {
	if rec, ok := r.cache.Get(keyID); ok {
		return rec, nil
	}
	if err := ctx.Err(); err != nil {
		return KeyRecord{}, cancelled(err)
	}
	// The shared walk outlives any single caller; each caller stops waiting
	// when its own context ends.
	walkCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(keyID, func() (any, error) {
		return r.walk(walkCtx, keyID)
	})
	select {
	case <-ctx.Done():
		return KeyRecord{}, cancelled(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return KeyRecord{}, res.Err
		}
		return res.Val.(KeyRecord), nil
	}
}

func cancelled(err error) error {
	return cred.WrapError(cred.KindNotFound, "CRED-KEY-404", "key resolution cancelled", err)
}

func (r *Resolver) walk(ctx context.Context, keyID string) (KeyRecord, error) {
	if rec, ok := r.cache.Get(keyID); ok {
		return rec, nil
	}
	logger := slogcontext.FromCtx(ctx).With(slog.String("key_id", keyID))
	for _, step := range r.steps {
		rec, err := step.Lookup(ctx, keyID)
		if err != nil {
			logger.WarnContext(ctx, "key source failed", slog.String("source", string(step.Kind())), slog.Any("error", err))
			continue
		}
		if rec == nil {
			logger.DebugContext(ctx, "key source has no key", slog.String("source", string(step.Kind())))
			continue
		}
		logger.DebugContext(ctx, "key resolved", slog.String("source", string(rec.Source)), slog.String("origin", rec.Origin))
		return r.cache.Put(*rec), nil
	}
	return KeyRecord{}, cred.NewError(cred.KindNotFound, "CRED-KEY-404", "no source produced a key for "+keyID)
}
