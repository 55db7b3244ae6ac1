package spa

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/2beens/logingate/pkg"

	log "github.com/sirupsen/logrus"
)

const indexFile = "index.html"

// Handler serves the built single page app: existing files from the static
// directory, and the index shell for every other path so client-side
// routing can take over.
type Handler struct {
	staticDir string
}

func NewHandler(staticDir string) *Handler {
	return &Handler{
		staticDir: staticDir,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// path.Clean on a rooted path drops any ".." that would leave the static dir
	urlPath := path.Clean("/" + r.URL.Path)
	if urlPath != "/" {
		if h.serveFile(w, r, filepath.Join(h.staticDir, filepath.FromSlash(urlPath))) {
			return
		}
	}

	if !h.serveFile(w, r, filepath.Join(h.staticDir, indexFile)) {
		log.Errorf("spa: index file missing in [%s]", h.staticDir)
		pkg.WriteResponse(w, pkg.ContentType.Text, "error sending the file", http.StatusInternalServerError)
	}
}

// serveFile writes the file at name and reports whether it was a regular file.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// StaticDirReady checks that the static directory holds the index shell.
func StaticDirReady(staticDir string) (bool, error) {
	return pkg.PathExists(filepath.Join(staticDir, indexFile), false)
}
