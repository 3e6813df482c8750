package server

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const indexPage = "index.html"

// staticHandler serves files under root with the standard library file
// server. http.Dir confines lookups to root.
//
// http.FileServer answers a request for ".../index.html" with a redirect
// to the directory; those are served in place instead.
func staticHandler(root string) http.Handler {
	dir := http.Dir(root)
	files := http.FileServer(dir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path.Base(r.URL.Path) != indexPage || strings.HasSuffix(r.URL.Path, "/") {
			files.ServeHTTP(w, r)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		f, err := dir.Open(name)
		if err != nil {
			staticError(w, err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			staticError(w, err)
			return
		}
		if info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}

		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// staticError maps filesystem errors the way http.FileServer does.
func staticError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, "404 page not found", http.StatusNotFound)
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}
