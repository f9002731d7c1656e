package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/x.jpg":
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/big.jpg":
			_, _ = w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 32)

	tests := []struct {
		name    string
		url     string
		want    []byte
		wantErr bool
	}{
		{name: "ok", url: srv.URL + "/x.jpg", want: []byte("jpeg-bytes")},
		{name: "404", url: srv.URL + "/missing.jpg", wantErr: true},
		{name: "too big", url: srv.URL + "/big.jpg", wantErr: true},
		{name: "unreachable", url: "http://127.0.0.1:1/x.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.Fetch(context.Background(), tt.url)
			if tt.wantErr {
				require.ErrorIs(t, err, model.ErrFetchFailed)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, data)
		})
	}
}

func TestHTTPFetcher_FetchErrorMentionsStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL+"/x.jpg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch failed")
	require.Contains(t, err.Error(), "404")
}
