package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/cidutil"
	"xdao.co/cred/fetch"
	"xdao.co/cred/keybundle"
	"xdao.co/cred/resolver"
	"xdao.co/cred/schema"
	"xdao.co/cred/storage"
	"xdao.co/cred/storage/localfs"
	"xdao.co/cred/verifier"
)

// Runtime is the object graph a Config describes.
type Runtime struct {
	Fetcher  *fetch.Client
	Resolver *resolver.Resolver
	Schemas  schema.Source
	Verifier *verifier.Verifier
	// CAS is nil when no cas_dirs are configured.
	CAS storage.CAS
}

// Open builds the runtime and preloads configured key bundles.
func (c Config) Open(ctx context.Context) (*Runtime, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{Fetcher: fetch.New(time.Duration(c.HTTPTimeout))}
	rt.Resolver = resolver.New(resolver.Options{
		Fetcher:       rt.Fetcher,
		DNSEndpoint:   c.DNSResolver,
		KeyRepository: c.KeyRepository,
	})

	remote := schema.NewHTTPSource(rt.Fetcher, c.SchemaRepository, c.SchemaCacheSize, time.Duration(c.SchemaTTL))
	if c.SchemaDir != "" {
		rt.Schemas = schema.Chain{schema.DirSource{Dir: c.SchemaDir}, remote}
	} else {
		rt.Schemas = remote
	}
	rt.Verifier = verifier.New(verifier.Options{Resolver: rt.Resolver, Schemas: rt.Schemas})

	cas, err := c.OpenCAS()
	if err != nil {
		return nil, err
	}
	rt.CAS = cas

	for _, s := range c.Bundles {
		id, err := cidutil.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("config: bundle %q: %w", s, err)
		}
		b, err := keybundle.Load(cas, id)
		if err != nil {
			return nil, fmt.Errorf("config: load bundle %s: %w", s, err)
		}
		n := keybundle.Seed(rt.Resolver.Cache(), b)
		slogcontext.FromCtx(ctx).InfoContext(ctx, "key bundle loaded",
			slog.String("cid", s), slog.Int("keys", len(b.Keys)), slog.Int("new", n))
	}
	return rt, nil
}

// OpenCAS opens the configured bundle stores, or returns nil if there are none.
func (c Config) OpenCAS() (storage.CAS, error) {
	if len(c.CASDirs) == 0 {
		return nil, nil
	}
	layers := make(storage.Layered, 0, len(c.CASDirs))
	for _, dir := range c.CASDirs {
		fs, err := localfs.New(dir)
		if err != nil {
			return nil, fmt.Errorf("config: open cas dir %s: %w", dir, err)
		}
		layers = append(layers, fs)
	}
	if len(layers) == 1 {
		return layers[0], nil
	}
	return layers, nil
}

// SlogLevel maps the configured level name onto slog.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
