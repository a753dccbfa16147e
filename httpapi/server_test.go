package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cred/model"
	"xdao.co/cred/resolver"
	"xdao.co/cred/schema"
	"xdao.co/cred/verifier"
)

const (
	testPEM = `-----BEGIN PUBLIC KEY-----
MFYwEAYHKoZIzj0CAQYFK4EEAAoDQgAE6DeIun4EgMBLUmbtjQw7DilMJ82YIvOR
2jz/IK0R/F7/zXY1z+gqvFXfDcJqR5clbAYlO9lHmvb4lsPLZHjugQ==
-----END PUBLIC KEY-----
`
	testURI = "CRED:BADGE:2:GBCAEIB3H2YRVGFK35Z5R4ACQFFPBRPS3F7OWSA4FCFORMOWLKIO6B6ODIBCAGKHXL7NRK7RDXHXBEGGLDOSFV3ZUGU7F64ASRRD3QUYDYYY5VEW:1A9.PCF.PW:20210511/MODERNA/COVID19/012L20A/28//C28161/RA/500/JANE%20DOE/19820321"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cache := resolver.NewCache()
	cache.Put(resolver.NewRecord("1A9.PCF.PW", resolver.SourceRepo, testPEM, "test"))
	v := verifier.New(verifier.Options{
		Resolver: resolver.New(resolver.Options{Cache: cache, Steps: []resolver.Step{}}),
		Schemas:  schema.MapSource{"badge.2.fields": "date/manuf/product/lot/boosts/passkey/route/site/dose/name/dob"},
	})
	s := &Server{Service: model.Service{Verifier: v}, AllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDecodeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv.URL+"/v1/decode", model.VerifyRequest{URI: testURI})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	var out model.DecodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Verified)
	assert.True(t, out.Schema)
	assert.Equal(t, "JANE DOE", out.Record["name"])
	assert.Equal(t, "REPO", out.Key.Source)
}

func TestVerifyEndpointErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name   string
		body   any
		status int
		code   model.ErrorCode
	}{
		{"tampered", model.VerifyRequest{URI: strings.Replace(testURI, "JANE", "JOHN", 1)}, http.StatusUnprocessableEntity, model.ErrVerificationFailed},
		{"unknown key", model.VerifyRequest{URI: strings.Replace(testURI, "1A9.PCF.PW", "NOPE.X", 1)}, http.StatusNotFound, model.ErrKeyNotFound},
		{"malformed", model.VerifyRequest{URI: "CRED:ONLY"}, http.StatusBadRequest, model.ErrDecode},
		{"unknown field", map[string]string{"url": testURI}, http.StatusBadRequest, model.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/verify", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			var ce model.CodedError
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&ce))
			assert.Equal(t, tc.code, ce.Code)
		})
	}
}

func TestKeyAndHashEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/keys/1A9.PCF.PW")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var key model.KeyRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&key))
	assert.Equal(t, testPEM, key.PEM)

	hresp := post(t, srv.URL+"/v1/hash", model.HashRequest{Fields: []string{"20210511", "MODERNA", "COVID19", "012L20A", "28", "", "C28161", "RA", "500", "JANE DOE", "19820321"}})
	require.Equal(t, http.StatusOK, hresp.StatusCode)
	var h model.HashResponse
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&h))
	assert.Equal(t, "WEZL5RF7WQUQHUAJETG7CFXTM3IXYMWJVGFBUCNGTJKFLSDVSEIA", h.Hash)
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "6f1c1a52-3c55-4bb8-9d0c-8f7f2bb1f1b1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "6f1c1a52-3c55-4bb8-9d0c-8f7f2bb1f1b1", resp.Header.Get(requestIDHeader))
}

func TestKeyEndpointAcceptsSlashInKeyID(t *testing.T) {
	cache := resolver.NewCache()
	cache.Put(resolver.NewRecord("keys.example.org/k.pem", resolver.SourceURL, testPEM, "https://keys.example.org/k.pem"))
	v := verifier.New(verifier.Options{
		Resolver: resolver.New(resolver.Options{Cache: cache, Steps: []resolver.Step{}}),
	})
	srv := httptest.NewServer((&Server{Service: model.Service{Verifier: v}}).Handler())
	defer srv.Close()

	for _, path := range []string{"/v1/keys/keys.example.org/k.pem", "/v1/keys/keys.example.org%2Fk.pem"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		var key model.KeyRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&key))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "keys.example.org/k.pem", key.KeyID, path)
	}
}
