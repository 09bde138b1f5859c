package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/state"
)

type cachedDocument struct {
	data    []byte
	modTime time.Time
}

// DocumentHandlers serves regular files of the output directory read-only.
// XML documents are cached in memory until invalidated.
type DocumentHandlers struct {
	store        *state.Store
	errorAdapter *rserrors.HTTPErrorAdapter

	mu    sync.RWMutex
	cache map[string]cachedDocument
}

// NewDocumentHandlers creates document handlers over store.
func NewDocumentHandlers(store *state.Store) *DocumentHandlers {
	return &DocumentHandlers{
		store:        store,
		errorAdapter: rserrors.NewHTTPErrorAdapter(slog.Default()),
		cache:        make(map[string]cachedDocument),
	}
}

// Invalidate drops name from the cache; an empty name drops everything.
func (h *DocumentHandlers) Invalidate(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if name == "" {
		clear(h.cache)
		return
	}
	delete(h.cache, name)
}

// Cached reports whether name is currently cached.
func (h *DocumentHandlers) Cached(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.cache[name]
	return ok
}

// ServeDocument serves the published document name. Dotfiles, staging files
// and anything below the top level are never exposed.
func (h *DocumentHandlers) ServeDocument(w http.ResponseWriter, r *http.Request, name string) {
	if !publishable(name) {
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("document", name))
		return
	}
	w.Header().Set("Content-Type", contentType(name))

	if path.Ext(name) == ".xml" {
		doc, err := h.load(name)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		http.ServeContent(w, r, name, doc.modTime, bytes.NewReader(doc.data))
		return
	}

	f, err := h.store.Open(name)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, openError(name, err))
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("document", name))
		return
	}
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

func (h *DocumentHandlers) load(name string) (cachedDocument, error) {
	h.mu.RLock()
	doc, ok := h.cache[name]
	h.mu.RUnlock()
	if ok {
		return doc, nil
	}

	f, err := h.store.Open(name)
	if err != nil {
		return cachedDocument{}, openError(name, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return cachedDocument{}, rserrors.NotFound("document", name)
	}
	data, err := h.store.ReadFile(name)
	if err != nil {
		return cachedDocument{}, openError(name, err)
	}
	doc = cachedDocument{data: data, modTime: fi.ModTime()}

	h.mu.Lock()
	h.cache[name] = doc
	h.mu.Unlock()
	slog.Debug("Document cached", logfields.Document(name), slog.Int("bytes", len(data)))
	return doc, nil
}

func openError(name string, err error) error {
	if os.IsNotExist(err) {
		return rserrors.NotFound("document", name)
	}
	return rserrors.DirectoryError("read", name, err)
}

func publishable(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".xml":
		return "application/xml"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
