package fetch

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTP_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mdi.json":
			require.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"prefix":"mdi","icons":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTP(time.Second)

	body, err := f.Fetch(t.Context(), CollectionURL(srv.URL+"/", "mdi"))
	require.NoError(t, err)
	require.JSONEq(t, `{"prefix":"mdi","icons":{}}`, string(body))

	_, err = f.Fetch(t.Context(), CollectionURL(srv.URL, "missing"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Contains(t, err.Error(), "404")
}

func TestHTTP_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTP(50*time.Millisecond).Fetch(t.Context(), srv.URL+"/slow.json")
	require.Error(t, err)
}

func TestCollectionURL(t *testing.T) {
	require.Equal(t, "https://cdn.example/json/mdi.json", CollectionURL("https://cdn.example/json", "mdi"))
	require.Equal(t, "https://cdn.example/json/mdi.json", CollectionURL("https://cdn.example/json//", "mdi"))
}
