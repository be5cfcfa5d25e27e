package route

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// StaticFallback はfsysに存在する通常ファイルのみを配信し、
// それ以外はnotFoundに委ねるハンドラーを返す。
func StaticFallback(fsys fs.FS, notFound http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fsys == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			notFound.ServeHTTP(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" || !fs.ValidPath(name) {
			notFound.ServeHTTP(w, r)
			return
		}

		info, err := fs.Stat(fsys, name)
		if err != nil || !info.Mode().IsRegular() {
			notFound.ServeHTTP(w, r)
			return
		}

		http.ServeFileFS(w, r, fsys, name)
	})
}
