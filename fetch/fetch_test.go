package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cred/cred"
)

func TestTextAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text":
			_, _ = w.Write([]byte("hello"))
		case "/json":
			_, _ = w.Write([]byte(`{"Status":0}`))
		case "/bad-json":
			_, _ = w.Write([]byte(`{`))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", MaxBodyBytes+1)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(0)
	ctx := context.Background()

	got, err := c.Text(ctx, srv.URL+"/text")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	var v struct{ Status int }
	require.NoError(t, c.JSON(ctx, srv.URL+"/json", &v))

	for path, rule := range map[string]string{
		"/missing":  "CRED-NET-003",
		"/bad-json": "CRED-NET-006",
		"/big":      "CRED-NET-005",
	} {
		var err error
		if path == "/bad-json" {
			err = c.JSON(ctx, srv.URL+path, &v)
		} else {
			_, err = c.Text(ctx, srv.URL+path)
		}
		require.Error(t, err, path)
		assert.True(t, cred.IsKind(err, cred.KindTransport), path)
		assert.Equal(t, rule, cred.RuleID(err), path)
	}
}

func TestUnreachableHostIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(0).Text(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, "CRED-NET-002", cred.RuleID(err))
}
