package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"xdao.co/cred/cred"
	"xdao.co/cred/fetch"
)

// DefaultRepository serves <type>.<version>.fields files.
const DefaultRepository = "https://raw.githubusercontent.com/Path-Check/paper-cred/main/payloads/"

// ErrNoSchema means no schema exists for a type and version. It is an
// expected outcome, not a failure.
var ErrNoSchema = errors.New("schema: no schema for type and version")

// Key names the schema file for a credential type and version. TYPE is
// lower-cased; envelopes carry it upper-cased.
func Key(credType, version string) string {
	return strings.ToLower(credType) + "." + version + ".fields"
}

// Source returns raw schema text.
type Source interface {
	Fetch(ctx context.Context, credType, version string) (string, error)
}

// Load fetches and parses the schema for a type and version.
func Load(ctx context.Context, src Source, credType, version string) ([]Node, error) {
	text, err := src.Fetch(ctx, credType, version)
	if err != nil {
		return nil, err
	}
	nodes, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoSchema
	}
	return nodes, nil
}

// MapSource serves schema texts from memory, keyed by Key.
type MapSource map[string]string

func (m MapSource) Fetch(_ context.Context, credType, version string) (string, error) {
	text, ok := m[Key(credType, version)]
	if !ok {
		return "", ErrNoSchema
	}
	return text, nil
}

// DirSource reads <Dir>/<Key> from the filesystem.
type DirSource struct {
	Dir string
}

func (d DirSource) Fetch(_ context.Context, credType, version string) (string, error) {
	key := Key(credType, version)
	if strings.ContainsAny(key, `/\`) {
		return "", ErrNoSchema
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSchema
		}
		return "", err
	}
	return string(data), nil
}

// HTTPSource fetches <Base><Key> and caches found texts for TTL.
// Missing schemas are not cached.
type HTTPSource struct {
	fetcher fetch.Fetcher
	base    string
	cache   *expirable.LRU[string, string]
}

// NewHTTPSource returns a source over base. size and ttl bound the cache.
func NewHTTPSource(f fetch.Fetcher, base string, size int, ttl time.Duration) *HTTPSource {
	if base == "" {
		base = DefaultRepository
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HTTPSource{
		fetcher: f,
		base:    base,
		cache:   expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, credType, version string) (string, error) {
	key := Key(credType, version)
	if text, ok := s.cache.Get(key); ok {
		return text, nil
	}
	text, err := s.fetcher.Text(ctx, s.base+key)
	if err != nil {
		// A non-2xx status means the repository has no such file.
		if cred.RuleID(err) == "CRED-NET-003" {
			return "", ErrNoSchema
		}
		return "", err
	}
	s.cache.Add(key, text)
	return text, nil
}

// Chain consults sources in order and returns the first schema found.
type Chain []Source

func (c Chain) Fetch(ctx context.Context, credType, version string) (string, error) {
	for _, src := range c {
		text, err := src.Fetch(ctx, credType, version)
		if errors.Is(err, ErrNoSchema) {
			continue
		}
		return text, err
	}
	return "", ErrNoSchema
}
