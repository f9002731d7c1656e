package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

func newTestRouter(svc DehazeService) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, NewDehazeHandler(svc, model.SamplePrefix, 50))
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDehazeHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewDehazeHandler(nil, model.SamplePrefix, 0)

	r.GET("/ping", func(c *gin.Context) {
		h.SimplePinger((*ginext.Context)(c))
	})

	w := doJSON(r, http.MethodGet, "/ping", "")
	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

func TestDehazeHandler_Dehaze(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		mock        *mockDehazeService
		wantStatus  int
		wantSuccess bool
		wantErrPart string
		wantPath    string
	}{
		{
			name: "sample key",
			body: `{"imagePath": "hazy_7.jpg"}`,
			mock: &mockDehazeService{
				dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
					require.False(t, ref.IsRemote())
					require.Equal(t, "hazy_7.jpg", ref.Value())
					return &model.Result{
						Success:           true,
						Message:           "Image processed successfully",
						OriginalPath:      ref.Value(),
						ProcessedPath:     "dehazed_hazy_7.jpg",
						ProcessedImageURL: "http://localhost:9000/images/dehazed_hazy_7.jpg",
					}, nil
				},
			},
			wantStatus:  200,
			wantSuccess: true,
			wantPath:    "dehazed_hazy_7.jpg",
		},
		{
			name: "sample path with prefix",
			body: `{"imagePath": "/images/hazy_1.jpg"}`,
			mock: &mockDehazeService{
				dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
					require.Equal(t, "hazy_1.jpg", ref.Value())
					return &model.Result{Success: true, ProcessedPath: "dehazed_hazy_1.jpg", ProcessedImageURL: "u"}, nil
				},
			},
			wantStatus:  200,
			wantSuccess: true,
			wantPath:    "dehazed_hazy_1.jpg",
		},
		{
			name:        "missing imagePath",
			body:        `{}`,
			mock:        &mockDehazeService{},
			wantStatus:  500,
			wantErrPart: "missing input",
		},
		{
			name:        "empty body",
			body:        ``,
			mock:        &mockDehazeService{},
			wantStatus:  500,
			wantErrPart: "missing input",
		},
		{
			name:        "malformed json",
			body:        `{"imagePath": `,
			mock:        &mockDehazeService{},
			wantStatus:  500,
			wantErrPart: "missing input",
		},
		{
			name: "object not found",
			body: `{"imagePath": "hazy_99.jpg"}`,
			mock: &mockDehazeService{
				dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
					return nil, fmt.Errorf("%w: %q", model.ErrObjectNotFound, ref.Value())
				},
			},
			wantStatus:  500,
			wantErrPart: "object not found",
		},
		{
			name: "remote fetch failed",
			body: `{"imagePath": "https://example.com/x.jpg"}`,
			mock: &mockDehazeService{
				dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
					require.True(t, ref.IsRemote())
					return nil, fmt.Errorf("%w: GET %q: status 404", model.ErrFetchFailed, ref.Value())
				},
			},
			wantStatus:  500,
			wantErrPart: "fetch failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newTestRouter(tt.mock), http.MethodPost, "/dehaze", tt.body)
			require.Equal(t, tt.wantStatus, w.Code)

			var res model.Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			require.Equal(t, tt.wantSuccess, res.Success)

			if tt.wantErrPart != "" {
				require.Contains(t, res.Error, tt.wantErrPart)
				return
			}
			require.Equal(t, tt.wantPath, res.ProcessedPath)
			require.NotEmpty(t, res.ProcessedImageURL)
		})
	}
}

func TestDehazeHandler_PanicStillJSON(t *testing.T) {
	mock := &mockDehazeService{
		dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
			panic("boom")
		},
	}

	w := doJSON(newTestRouter(mock), http.MethodPost, "/dehaze", `{"imagePath": "hazy_1.jpg"}`)
	require.Equal(t, 500, w.Code)

	var res model.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)
}

func TestDehazeHandler_Preflight(t *testing.T) {
	// сервис не должен вызываться вообще
	mock := &mockDehazeService{}
	r := newTestRouter(mock)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{
			name: "browser preflight",
			headers: map[string]string{
				"Origin":                         "http://localhost:5173",
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "content-type, apikey",
			},
		},
		{
			name:    "bare options",
			headers: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/dehaze", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.GreaterOrEqual(t, w.Code, 200)
			require.Less(t, w.Code, 300)
			require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			require.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "content-type")
		})
	}
}

func TestDehazeHandler_Samples(t *testing.T) {
	w := doJSON(newTestRouter(&mockDehazeService{}), http.MethodGet, "/samples", "")
	require.Equal(t, 200, w.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["samples"], 50)
	require.Equal(t, "/images/hazy_1.jpg", body["samples"][0])
}

func TestNewRouter_ServesRoutes(t *testing.T) {
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	svc := &mockDehazeService{dehazeFn: func(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
		return &model.Result{Success: true, ProcessedPath: "dehazed_hazy_3.jpg", ProcessedImageURL: "http://x/dehazed_hazy_3.jpg"}, nil
	}}
	engine := NewRouter("release", NewDehazeHandler(svc, model.SamplePrefix, 50))

	w := doJSON(engine, http.MethodGet, "/ping", "")
	require.Equal(t, 200, w.Code)

	w = doJSON(engine, http.MethodPost, "/dehaze", `{"imagePath": "hazy_3.jpg"}`)
	require.Equal(t, 200, w.Code)
	var res model.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "dehazed_hazy_3.jpg", res.ProcessedPath)

	w = doJSON(engine, http.MethodOptions, "/dehaze", "")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = doJSON(engine, http.MethodGet, "/metrics", "")
	require.Equal(t, 200, w.Code)
}
