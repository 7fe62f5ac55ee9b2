package webui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestStaticAssetHandler(t *testing.T) {
	fsys := fstest.MapFS{
		"css/app.css":          {Data: []byte("body{}")},
		"templates/index.html": {Data: []byte("<html>")},
	}
	h := NewStaticAssetHandlerWithFS(fsys, DefaultStaticAssetConfig())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantType    string
		wantBody    string
		wantCaching string
	}{
		{name: "stylesheet", method: http.MethodGet, path: "/static/css/app.css", wantStatus: 200, wantType: "text/css; charset=utf-8", wantBody: "body{}", wantCaching: "public, max-age=3600"},
		{name: "head", method: http.MethodHead, path: "/static/css/app.css", wantStatus: 200},
		{name: "missing", method: http.MethodGet, path: "/static/css/none.css", wantStatus: 404},
		{name: "templates hidden", method: http.MethodGet, path: "/static/templates/index.html", wantStatus: 404},
		{name: "traversal", method: http.MethodGet, path: "/static/../templates/index.html", wantStatus: 404},
		{name: "post rejected", method: http.MethodPost, path: "/static/css/app.css", wantStatus: 405},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q", rec.Body.String())
			}
			if tt.wantCaching != "" && rec.Header().Get("Cache-Control") != tt.wantCaching {
				t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestStaticAssetHandler_EmbeddedStylesheet(t *testing.T) {
	h := NewStaticAssetHandler(DefaultStaticAssetConfig())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("embedded app.css: status %d, %d bytes", rec.Code, rec.Body.Len())
	}
}
