package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/rosterlens/internal/adapters/tabular"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
)

// RosterDependencies defines the interface for roster uploads.
type RosterDependencies interface {
	Upload(ctx context.Context, r io.Reader, format tabular.Format) (types.UploadResult, error)
	Progress(ctx context.Context) model.Progress
}

// RosterHandler handles roster uploads and progress polling.
type RosterHandler struct {
	deps      RosterDependencies
	maxUpload int64
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies, maxUpload int64) *RosterHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &RosterHandler{deps: deps, maxUpload: maxUpload}
}

// HandleUpload handles POST /roster?format=csv|xlsx. The body is the file
// itself. Without a format the extension of ?filename= decides, then csv.
func (h *RosterHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_roster"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	format, err := uploadFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_format", WrapKind(op, ErrBadRequest, err))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	res, err := h.deps.Upload(r.Context(), body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrPayloadTooLarge, err))
		case errors.Is(err, tabular.ErrIngestion), errors.Is(err, tabular.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "ingestion_error", err)
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func uploadFormat(r *http.Request) (tabular.Format, error) {
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		return tabular.ParseFormat(f)
	}
	if name := q.Get("filename"); name != "" {
		return tabular.FormatFromName(name)
	}
	return tabular.FormatCSV, nil
}

// HandleProgress handles GET /roster/progress.
func (h *RosterHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Progress(r.Context()))
}
