// Static front-end handler.
//
// Static is mounted as the router's NoRoute fallback: any GET or HEAD that
// no API route claimed is looked up under the web root. "/" serves
// index.html. Paths are cleaned before the lookup, so ".." can never leave
// the web root.
package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// resolveStatic maps a URL path to a regular file under root, or "".
func resolveStatic(root, urlPath string) string {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		clean = "/" + indexFile
	}
	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	fi, err := os.Stat(full)
	if err != nil || !fi.Mode().IsRegular() {
		return ""
	}
	return full
}

// Static serves the front-end or answers 404 in the error envelope.
func (h *Handlers) Static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	}
	file := resolveStatic(h.webDir, c.Request.URL.Path)
	if file == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	}
	c.File(file)
}
