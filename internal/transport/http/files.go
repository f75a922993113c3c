package http

import (
	"errors"
	"io/fs"
	"net/http"
	"path"

	"github.com/eveul/storefront/internal/storage"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

// FileHandler serves blobs kept by the local blob store
type FileHandler struct {
	log   hclog.Logger
	store *storage.Local
}

func NewFileHandler(l hclog.Logger, s *storage.Local) *FileHandler {
	return &FileHandler{log: l, store: s}
}

// GetFile handles GET /images/{path}
func (f *FileHandler) GetFile(rw http.ResponseWriter, r *http.Request) {
	fp := mux.Vars(r)["path"]

	file, err := f.store.Open(fp)
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		f.log.Debug("Invalid path", "path", fp)
		http.Error(rw, "Invalid file path", http.StatusBadRequest)
		return
	case errors.Is(err, fs.ErrNotExist):
		http.Error(rw, "File not found", http.StatusNotFound)
		return
	case err != nil:
		f.log.Error("Unable to open the file", "path", fp, "error", err)
		http.Error(rw, "Unable to serve the file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		http.Error(rw, "File not found", http.StatusNotFound)
		return
	}

	// Determine the content type
	contentType, err := getContentType(file)
	if err != nil {
		f.log.Error("Unable to detect content type", "error", err)
		contentType = "application/octet-stream"
	}
	rw.Header().Set("Content-Type", contentType)
	// blob names are random, a path never changes content
	rw.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	http.ServeContent(rw, r, path.Base(fp), info.ModTime(), file)
}
