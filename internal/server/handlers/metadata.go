package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/crosswalk"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// MetadataHandlers render the metadata representations listed in the
// published documents.
type MetadataHandlers struct {
	cfg          *config.Config
	repo         repository.Repository
	crosswalks   *crosswalk.Registry
	errorAdapter *rserrors.HTTPErrorAdapter
}

func NewMetadataHandlers(cfg *config.Config, repo repository.Repository, crosswalks *crosswalk.Registry) *MetadataHandlers {
	return &MetadataHandlers{
		cfg:          cfg,
		repo:         repo,
		crosswalks:   crosswalks,
		errorAdapter: rserrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// Render writes the prefix rendering of the item named by handle, which is
// either a handle or the item/<id> form used for items without one.
// Withdrawn and restricted items are reported as not found.
func (h *MetadataHandlers) Render(w http.ResponseWriter, r *http.Request, handle, prefix string) {
	format, ok := h.cfg.Format(prefix)
	if !ok || !h.crosswalks.Supports(prefix) {
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("metadata format", prefix))
		return
	}

	item, err := h.lookup(r.Context(), handle)
	switch {
	case repository.IsNotFound(err):
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("item", handle))
		return
	case err != nil:
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.RepositoryAccess("load item", err).WithContext("handle", handle))
		return
	case item.Withdrawn || item.Restricted:
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("item", handle))
		return
	}

	data, err := h.crosswalks.Render(r.Context(), prefix, item)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, rserrors.RepositoryAccess("render metadata", err).
			WithContext("handle", handle).WithContext("format", prefix))
		return
	}
	w.Header().Set("Content-Type", format.MIMEType)
	if !item.LastModified.IsZero() {
		w.Header().Set("Last-Modified", item.LastModified.UTC().Format(http.TimeFormat))
	}
	_, _ = w.Write(data)
}

func (h *MetadataHandlers) lookup(ctx context.Context, key string) (*repository.Item, error) {
	if id, ok := urls.ParseItemKey(key); ok {
		return h.repo.ItemByID(ctx, id)
	}
	return h.repo.Item(ctx, key)
}
