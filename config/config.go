// Package config loads the settings shared by the cred CLI and the credd
// daemon and opens the runtime they describe.
//
// Files are YAML or JSON:
//
//	dns_resolver: https://dns.google/resolve
//	key_repository: https://raw.githubusercontent.com/Path-Check/paper-cred/main/keys/
//	schema_repository: https://raw.githubusercontent.com/Path-Check/paper-cred/main/payloads/
//	schema_dir: /etc/cred/schemas
//	schema_ttl: 1h
//	http_timeout: 10s
//	cas_dirs: [/var/lib/cred/bundles]
//	bundles: [bafkrei...]
//	listen:
//	  http: 127.0.0.1:8080
//	  grpc: 127.0.0.1:9090
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"sigs.k8s.io/yaml"

	"xdao.co/cred/cidutil"
	"xdao.co/cred/resolver"
	"xdao.co/cred/schema"
)

// Duration is a time.Duration written as "10s" or "1h30m".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"10s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*d = Duration(v)
	return nil
}

type Listen struct {
	HTTP string `json:"http,omitempty"`
	GRPC string `json:"grpc,omitempty"`
}

type Config struct {
	DNSResolver      string   `json:"dns_resolver,omitempty"`
	KeyRepository    string   `json:"key_repository,omitempty"`
	SchemaRepository string   `json:"schema_repository,omitempty"`
	SchemaDir        string   `json:"schema_dir,omitempty"`
	SchemaTTL        Duration `json:"schema_ttl,omitempty"`
	SchemaCacheSize  int      `json:"schema_cache_size,omitempty"`
	HTTPTimeout      Duration `json:"http_timeout,omitempty"`
	// CASDirs are bundle stores; the first is writable.
	CASDirs []string `json:"cas_dirs,omitempty"`
	// Bundles are CIDs of key bundles preloaded into the resolver cache.
	Bundles  []string `json:"bundles,omitempty"`
	Listen   Listen   `json:"listen,omitempty"`
	LogLevel string   `json:"log_level,omitempty"`
}

// Default returns the public defaults.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills every unset field.
func (c Config) WithDefaults() Config {
	if c.DNSResolver == "" {
		c.DNSResolver = resolver.DefaultDNSEndpoint
	}
	if c.KeyRepository == "" {
		c.KeyRepository = resolver.DefaultKeyRepository
	}
	if c.SchemaRepository == "" {
		c.SchemaRepository = schema.DefaultRepository
	}
	if c.SchemaTTL == 0 {
		c.SchemaTTL = Duration(time.Hour)
	}
	if c.SchemaCacheSize == 0 {
		c.SchemaCacheSize = 128
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = Duration(10 * time.Second)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// LoadFile reads, defaults and validates a config file.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML or JSON. Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c = c.WithDefaults()
	return c, c.Validate()
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"dns_resolver":      c.DNSResolver,
		"key_repository":    c.KeyRepository,
		"schema_repository": c.SchemaRepository,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("config: %s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.SchemaTTL < 0 || c.HTTPTimeout < 0 {
		return errors.New("config: durations must not be negative")
	}
	if c.SchemaCacheSize < 0 {
		return errors.New("config: schema_cache_size must not be negative")
	}
	for _, d := range c.CASDirs {
		if strings.TrimSpace(d) == "" {
			return errors.New("config: cas_dirs entries must not be empty")
		}
	}
	if len(c.Bundles) > 0 && len(c.CASDirs) == 0 {
		return errors.New("config: bundles require at least one cas_dirs entry")
	}
	for _, b := range c.Bundles {
		if _, err := cidutil.Parse(b); err != nil {
			return fmt.Errorf("config: bundle %q: %w", b, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}
