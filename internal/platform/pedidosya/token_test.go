package pedidosya

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *atomic.Int64, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-abc","expires_in":` + strconv.FormatInt(expiresIn, 10) + `}`))
	}))
}

func TestTokenCachedUntilRefreshMargin(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls, 3600)
	defer srv.Close()

	source := newTokenSource(srv.URL, "client", "secret", srv.Client())

	first, err := source.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", first)

	second, err := source.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "second call must hit the cache")
}

func TestTokenRefreshesInsideMargin(t *testing.T) {
	var calls atomic.Int64
	// Expires in 60s, which is already inside the 5 minute refresh margin,
	// so every call re-authenticates.
	srv := tokenServer(t, &calls, 60)
	defer srv.Close()

	source := newTokenSource(srv.URL, "client", "secret", srv.Client())

	_, err := source.Token(t.Context())
	require.NoError(t, err)
	_, err = source.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls, 3600)
	defer srv.Close()

	source := newTokenSource(srv.URL, "client", "secret", srv.Client())

	_, err := source.Token(t.Context())
	require.NoError(t, err)
	source.Invalidate()
	_, err = source.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestTokenEndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusBadRequest)
	}))
	defer srv.Close()

	source := newTokenSource(srv.URL, "client", "secret", srv.Client())
	_, err := source.Token(t.Context())
	assert.Error(t, err)
}

func TestTokenEndpointEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"","expires_in":3600}`))
	}))
	defer srv.Close()

	source := newTokenSource(srv.URL, "client", "secret", srv.Client())
	_, err := source.Token(t.Context())
	assert.Error(t, err)
}
