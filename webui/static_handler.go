package webui

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"outlook_backend/webui/static"
)

// StaticAssetHandler serves the embedded stylesheet under /static/.
type StaticAssetHandler struct {
	fs          fs.FS
	prefix      string
	enableCache bool
	cacheMaxAge int
}

// StaticAssetConfig configures the StaticAssetHandler.
type StaticAssetConfig struct {
	// Prefix is the URL prefix (default "/static")
	Prefix string

	EnableCache bool

	// CacheMaxAge in seconds (default 3600)
	CacheMaxAge int
}

// DefaultStaticAssetConfig returns the production settings.
func DefaultStaticAssetConfig() StaticAssetConfig {
	return StaticAssetConfig{
		Prefix:      "/static",
		EnableCache: true,
		CacheMaxAge: 3600,
	}
}

// NewStaticAssetHandler serves from the embedded filesystem.
func NewStaticAssetHandler(config StaticAssetConfig) *StaticAssetHandler {
	return NewStaticAssetHandlerWithFS(static.GetFS(), config)
}

// NewStaticAssetHandlerWithFS serves from fsys, for tests.
func NewStaticAssetHandlerWithFS(fsys fs.FS, config StaticAssetConfig) *StaticAssetHandler {
	if config.Prefix == "" {
		config.Prefix = "/static"
	}
	if config.CacheMaxAge == 0 {
		config.CacheMaxAge = 3600
	}
	return &StaticAssetHandler{
		fs:          fsys,
		prefix:      config.Prefix,
		enableCache: config.EnableCache,
		cacheMaxAge: config.CacheMaxAge,
	}
}

// ServeHTTP serves one asset. Templates are never exposed.
func (h *StaticAssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, h.prefix)
	urlPath = strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if urlPath == "" || strings.HasPrefix(urlPath, "templates/") {
		http.NotFound(w, r)
		return
	}

	data, err := fs.ReadFile(h.fs, urlPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", detectContentType(urlPath))
	if h.enableCache {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.cacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(data)
	}
}

// RegisterRoutes mounts the handler on mux.
func (h *StaticAssetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(h.prefix+"/", h)
}

func detectContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".css":
		return "text/css; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
