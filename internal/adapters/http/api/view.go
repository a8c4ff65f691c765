package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/rosterlens/internal/adapters/repository"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
)

// ViewDependencies defines the interface for displayed-view operations.
type ViewDependencies interface {
	View(ctx context.Context) repository.View
	ApplyView(ctx context.Context, q types.ViewQuery) (repository.View, error)
	Distribution(ctx context.Context) []view.Bucket
}

// ViewHandler serves the displayed view and its distribution.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

type viewResponse struct {
	Generation  uint64                `json:"generation"`
	Label       string                `json:"label,omitempty"`
	Sort        types.SortState       `json:"sort"`
	Count       int                   `json:"count"`
	PublishedAt time.Time             `json:"published_at"`
	Summary     view.Summary          `json:"summary"`
	Records     []model.StudentRecord `json:"records"`
}

func newViewResponse(v repository.View) viewResponse {
	return viewResponse{
		Generation:  v.Generation,
		Label:       v.Label,
		Sort:        v.Sort,
		Count:       len(v.Records),
		PublishedAt: v.PublishedAt,
		Summary:     view.Summarize(v.Records),
		Records:     v.Records,
	}
}

// HandleView handles GET /roster/view (current view) and POST /roster/view
// (derive a new one from {search, filter, n, sort, direction}).
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.view"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newViewResponse(h.deps.View(r.Context())))
	case http.MethodPost:
		var q types.ViewQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		v, err := h.deps.ApplyView(r.Context(), q)
		if err != nil {
			switch {
			case errors.Is(err, view.ErrUnknownFilter),
				errors.Is(err, view.ErrUnknownSortKey),
				errors.Is(err, view.ErrUnknownDirection):
				writeError(w, http.StatusBadRequest, "bad_query", err)
			case errors.Is(err, service.ErrViewConflict):
				writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			}
			return
		}
		writeJSON(w, http.StatusOK, newViewResponse(v))
	default:
		http.NotFound(w, r)
	}
}

// HandleDistribution handles GET /roster/distribution.
func (h *ViewHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Distribution(r.Context()))
}
