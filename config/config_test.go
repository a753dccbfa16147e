package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cred/keybundle"
	"xdao.co/cred/resolver"
	"xdao.co/cred/storage/localfs"
)

func TestParseYAMLAndDefaults(t *testing.T) {
	c, err := Parse([]byte(`
schema_dir: /tmp/schemas
schema_ttl: 5m
http_timeout: 3s
listen:
  http: 127.0.0.1:8080
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, resolver.DefaultDNSEndpoint, c.DNSResolver)
	assert.Equal(t, Duration(5*time.Minute), c.SchemaTTL)
	assert.Equal(t, Duration(3*time.Second), c.HTTPTimeout)
	assert.Equal(t, "127.0.0.1:8080", c.Listen.HTTP)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	assert.Equal(t, 128, c.SchemaCacheSize)
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(`{"dns_resolver":"https://cloudflare-dns.com/dns-query","http_timeout":"1s"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cloudflare-dns.com/dns-query", c.DNSResolver)
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":   "nope: 1\n",
		"bad url":         "dns_resolver: ftp://x\n",
		"bad duration":    "schema_ttl: soon\n",
		"numeric dur":     "schema_ttl: 5\n",
		"bad level":       "log_level: loud\n",
		"bundle no cas":   "bundles: [bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy]\n",
		"bad bundle cid":  "cas_dirs: [/tmp/x]\nbundles: [nope]\n",
		"empty cas entry": "cas_dirs: ['']\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := Default()
	c.CASDirs = []string{"/tmp/a"}
	out, err := c.Marshal()
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestOpenPreloadsBundles(t *testing.T) {
	dir := t.TempDir()
	cas, err := localfs.New(dir)
	require.NoError(t, err)

	pem := `-----BEGIN PUBLIC KEY-----
MFYwEAYHKoZIzj0CAQYFK4EEAAoDQgAE6DeIun4EgMBLUmbtjQw7DilMJ82YIvOR
2jz/IK0R/F7/zXY1z+gqvFXfDcJqR5clbAYlO9lHmvb4lsPLZHjugQ==
-----END PUBLIC KEY-----
`
	id, err := keybundle.Store(cas, []resolver.KeyRecord{resolver.NewRecord("1A9.PCF.PW", resolver.SourceRepo, pem, "")})
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "cred.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cas_dirs: ["+dir+"]\nbundles: ["+id.String()+"]\n"), 0o644))

	c, err := LoadFile(cfgPath)
	require.NoError(t, err)
	rt, err := c.Open(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rt.CAS)

	rec, ok := rt.Resolver.Cache().Get("1A9.PCF.PW")
	require.True(t, ok)
	assert.Equal(t, resolver.SourceRepo, rec.Source)
}

func TestOpenWithoutCAS(t *testing.T) {
	rt, err := Default().Open(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rt.CAS)
	assert.NotNil(t, rt.Verifier)
}
