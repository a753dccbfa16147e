package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cred/cred"
)

const testPEM = `-----BEGIN PUBLIC KEY-----
MFYwEAYHKoZIzj0CAQYFK4EEAAoDQgAE6DeIun4EgMBLUmbtjQw7DilMJ82YIvOR
2jz/IK0R/F7/zXY1z+gqvFXfDcJqR5clbAYlO9lHmvb4lsPLZHjugQ==
-----END PUBLIC KEY-----
`

// fakeFetcher serves canned bodies by URL and records every request.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	text  map[string]string
	json  map[string]string
	count atomic.Int32
}

func (f *fakeFetcher) record(url string) {
	f.count.Add(1)
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
}

func (f *fakeFetcher) Text(_ context.Context, url string) (string, error) {
	f.record(url)
	if body, ok := f.text[url]; ok {
		return body, nil
	}
	return "", cred.NewError(cred.KindTransport, "CRED-NET-003", "unexpected status 404")
}

func (f *fakeFetcher) JSON(_ context.Context, url string, v any) error {
	f.record(url)
	body, ok := f.json[url]
	if !ok {
		return cred.NewError(cred.KindTransport, "CRED-NET-002", "request failed")
	}
	return json.Unmarshal([]byte(body), v)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const dnsURL = "https://dns.google/resolve?name=1A9.PCF.PW&type=TXT"

func TestFallbackOrderEndsAtRepository(t *testing.T) {
	repo := DefaultKeyRepository + "PCF/1A9.pem"
	f := &fakeFetcher{
		json: map[string]string{dnsURL: `{"Status":3}`},
		text: map[string]string{
			"https://1A9.PCF.PW": "<html>not a key</html>",
			repo:                 testPEM,
		},
	}
	r := New(Options{Fetcher: f})

	rec, err := r.Resolve(context.Background(), "1A9.PCF.PW")
	require.NoError(t, err)
	assert.Equal(t, SourceRepo, rec.Source)
	assert.Equal(t, repo, rec.Origin)
	assert.Equal(t, testPEM, rec.PEM)
	assert.NotEmpty(t, rec.Fingerprint)
	assert.Equal(t, []string{dnsURL, "https://1A9.PCF.PW", repo}, f.Calls())
}

func TestCacheHitSkipsNetwork(t *testing.T) {
	f := &fakeFetcher{text: map[string]string{"https://keys.example.org/k.pem": testPEM}}
	r := New(Options{Fetcher: f})
	ctx := context.Background()

	first, err := r.Resolve(ctx, "keys.example.org/k.pem")
	require.NoError(t, err)
	assert.Equal(t, SourceURL, first.Source)
	n := len(f.Calls())

	second, err := r.Resolve(ctx, "keys.example.org/k.pem")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.Calls(), n)
	assert.Equal(t, 1, r.Cache().Len())
}

func TestNotFoundIsNotCached(t *testing.T) {
	f := &fakeFetcher{text: map[string]string{}}
	r := New(Options{Fetcher: f})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "1A9.PCF.PW")
	require.Error(t, err)
	assert.True(t, cred.IsKind(err, cred.KindNotFound))
	assert.Equal(t, "CRED-KEY-404", cred.RuleID(err))
	assert.Equal(t, 0, r.Cache().Len())

	f.text["https://1A9.PCF.PW"] = testPEM
	rec, err := r.Resolve(ctx, "1A9.PCF.PW")
	require.NoError(t, err)
	assert.Equal(t, SourceURL, rec.Source)
}

func TestDNSTextRecordIsArmored(t *testing.T) {
	body := `{"Status":0,"Answer":[{"name":"1A9.PCF.PW.","type":16,"data":"\"MFYwEAYHKoZIzj0CAQYFK4EEAAoDQgAE6DeIun4EgMBLUmbtjQw7DilMJ82YIvOR\" \"2jz/IK0R/F7/zXY1z+gqvFXfDcJqR5clbAYlO9lHmvb4lsPLZHjugQ==\""}]}`
	f := &fakeFetcher{json: map[string]string{dnsURL: body}}
	r := New(Options{Fetcher: f})

	rec, err := r.Resolve(context.Background(), "1A9.PCF.PW")
	require.NoError(t, err)
	assert.Equal(t, SourceDNS, rec.Source)
	assert.Equal(t, dnsURL, rec.Origin)
	assert.True(t, strings.HasPrefix(rec.PEM, pemBegin+"\n"))
	assert.True(t, strings.HasSuffix(rec.PEM, pemEnd+"\n"))
	assert.Contains(t, rec.PEM, "OR2jz/")
	assert.Equal(t, []string{dnsURL}, f.Calls())

	ok, err := cred.Verify(rec.PEM,
		"20210511/MODERNA/COVID19/012L20A/28//C28161/RA/500/JANE%20DOE/19820321",
		"GBCAEIB3H2YRVGFK35Z5R4ACQFFPBRPS3F7OWSA4FCFORMOWLKIO6B6ODIBCAGKHXL7NRK7RDXHXBEGGLDOSFV3ZUGU7F64ASRRD3QUYDYYY5VEW")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTxtToPEM(t *testing.T) {
	assert.Equal(t, "", txtToPEM(`""`))
	assert.Equal(t, testPEM, txtToPEM(`"`+strings.ReplaceAll(testPEM, "\n", `\n`)+`"`))
	assert.Equal(t, pemBegin+"\nABC\n"+pemEnd+"\n", txtToPEM("ABC"))
}

func TestRepoPath(t *testing.T) {
	p, ok := RepoPath("1A9.PCF.PW")
	require.True(t, ok)
	assert.Equal(t, "PCF/1A9.pem", p)

	_, ok = RepoPath("nodots")
	assert.False(t, ok)
	_, ok = RepoPath(".PCF")
	assert.False(t, ok)
}

type errStep struct{ calls *atomic.Int32 }

func (errStep) Kind() SourceKind { return SourceDNS }
func (s errStep) Lookup(context.Context, string) (*KeyRecord, error) {
	s.calls.Add(1)
	return nil, errors.New("boom")
}

type staticStep struct{}

func (staticStep) Kind() SourceKind { return SourceURL }
func (staticStep) Lookup(_ context.Context, keyID string) (*KeyRecord, error) {
	rec := NewRecord(keyID, SourceURL, testPEM, "https://"+keyID)
	return &rec, nil
}

func TestStepErrorsAreSwallowed(t *testing.T) {
	var calls atomic.Int32
	r := New(Options{Steps: []Step{errStep{&calls}, staticStep{}}})
	rec, err := r.Resolve(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, SourceURL, rec.Source)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentResolvesConverge(t *testing.T) {
	f := &fakeFetcher{text: map[string]string{"https://example.org": testPEM}}
	r := New(Options{Fetcher: f})

	var wg sync.WaitGroup
	results := make([]KeyRecord, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := r.Resolve(context.Background(), "example.org")
			assert.NoError(t, err)
			results[i] = rec
		}(i)
	}
	wg.Wait()
	for _, rec := range results {
		assert.Equal(t, results[0], rec)
	}
	assert.Equal(t, 1, r.Cache().Len())
}

func TestCancelledContextIsNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{Steps: []Step{staticStep{}}}).Resolve(ctx, "example.org")
	require.Error(t, err)
	assert.True(t, cred.IsKind(err, cred.KindNotFound))
}

func TestCacheSnapshotSorted(t *testing.T) {
	c := NewCache()
	c.Put(KeyRecord{KeyID: "b"})
	c.Put(KeyRecord{KeyID: "a"})
	kept := c.Put(KeyRecord{KeyID: "a", PEM: "other"})
	assert.Equal(t, "", kept.PEM)
	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].KeyID)
	assert.Equal(t, "b", snap[1].KeyID)
}

// gateStep blocks every lookup until release is closed.
type gateStep struct {
	entered chan struct{}
	release chan struct{}
	calls   *atomic.Int32
}

func (gateStep) Kind() SourceKind { return SourceURL }
func (s gateStep) Lookup(_ context.Context, keyID string) (*KeyRecord, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	<-s.release
	rec := NewRecord(keyID, SourceURL, testPEM, "https://"+keyID)
	return &rec, nil
}

func TestSharedLookupSurvivesFirstCallerCancel(t *testing.T) {
	var calls atomic.Int32
	step := gateStep{entered: make(chan struct{}), release: make(chan struct{}), calls: &calls}
	r := New(Options{Steps: []Step{step}})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, "k.example")
		errA <- err
	}()
	<-step.entered

	type result struct {
		rec KeyRecord
		err error
	}
	resB := make(chan result, 1)
	go func() {
		rec, err := r.Resolve(context.Background(), "k.example")
		resB <- result{rec, err}
	}()

	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.True(t, cred.IsKind(err, cred.KindNotFound))

	close(step.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "k.example", b.rec.KeyID)
	assert.Equal(t, int32(1), calls.Load())

	rec, ok := r.Cache().Get("k.example")
	require.True(t, ok)
	assert.Equal(t, testPEM, rec.PEM)
}
