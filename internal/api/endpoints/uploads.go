package endpoints

import (
	"net/http"
	"strings"
)

// UploadsHandler serves stored attachments from root under prefix. Directory
// listings are not exposed.
func UploadsHandler(root, prefix string) http.Handler {
	files := http.StripPrefix(strings.TrimRight(prefix, "/"), http.FileServer(http.Dir(root)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
