package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
)

// StaticFS holds the watch page and its assets.
//
//go:embed static
var StaticFS embed.FS

// ServeApp serves the watch page. Unknown non-API paths get index.html so
// client-side routes such as /watch/{id} resolve.
func ServeApp(w http.ResponseWriter, r *http.Request) {
	requestPath := r.URL.Path

	// Don't serve UI for API routes or health check
	if strings.HasPrefix(requestPath, "/api/") || strings.HasPrefix(requestPath, "/ws/") || requestPath == "/health" {
		http.NotFound(w, r)
		return
	}

	if requestPath == "/" || requestPath == "" {
		serveIndexHTML(w)
		return
	}

	filePath := path.Join("static", strings.TrimPrefix(requestPath, "/"))
	if info, err := fs.Stat(StaticFS, filePath); err == nil && !info.IsDir() {
		http.ServeFileFS(w, r, StaticFS, filePath)
		return
	}

	serveIndexHTML(w)
}

// serveIndexHTML serves the index.html file directly from the embedded filesystem
func serveIndexHTML(w http.ResponseWriter) {
	data, err := fs.ReadFile(StaticFS, "static/index.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SetupUIRoutes mounts the watch page. It must be called after every other
// route is registered.
func SetupUIRoutes(r *mux.Router) {
	staticFS, err := fs.Sub(StaticFS, "static")
	if err == nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))).Methods("GET")
	}

	r.PathPrefix("/").HandlerFunc(ServeApp).Methods("GET")
}
