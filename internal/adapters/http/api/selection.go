package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/domain/view"
)

// SelectionDependencies defines the interface for comparison operations.
type SelectionDependencies interface {
	Select(ctx context.Context, generation uint64, rows []int) error
	Compare(ctx context.Context) ([]view.Series, error)
}

// SelectionHandler handles the comparison selection.
type SelectionHandler struct {
	deps SelectionDependencies
}

// NewSelectionHandler creates a new selection handler.
func NewSelectionHandler(deps SelectionDependencies) *SelectionHandler {
	return &SelectionHandler{deps: deps}
}

type selectRequest struct {
	Generation uint64 `json:"generation,omitempty"`
	Rows       []int  `json:"rows"`
}

type selectResponse struct {
	Selected int `json:"selected"`
}

// HandleSelect handles POST /roster/selection with {generation?, rows}.
func (h *SelectionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	const op = "api.select"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Select(r.Context(), req.Generation, req.Rows); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleGeneration):
			writeError(w, http.StatusConflict, "stale_generation", err)
		case errors.Is(err, repository.ErrRowOutOfRange):
			writeError(w, http.StatusBadRequest, "bad_row", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Selected: len(req.Rows)})
}

// HandleCompare handles GET /roster/compare.
func (h *SelectionHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	series, err := h.deps.Compare(r.Context())
	if err != nil {
		if errors.Is(err, view.ErrCompareEmpty) || errors.Is(err, view.ErrCompareTooMany) {
			writeError(w, http.StatusBadRequest, "bad_selection", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, series)
}
