package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/rosterlens/internal/adapters/tabular"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/domain/export"
)

// ExportDependencies defines the interface for exports.
type ExportDependencies interface {
	Export(ctx context.Context, w io.Writer, scope string, format tabular.Format) error
}

// ExportHandler streams exports as file downloads.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles GET /roster/export?scope=displayed|invalid&format=csv|xlsx.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	scope := q.Get("scope")
	if scope == "" {
		scope = export.Full.Name
	}
	format := tabular.FormatCSV
	if f := q.Get("format"); f != "" {
		var err error
		if format, err = tabular.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, "unsupported_format", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	// buffer so a failed projection never leaves a half-written download
	var buf bytes.Buffer
	if err := h.deps.Export(r.Context(), &buf, scope, format); err != nil {
		switch {
		case errors.Is(err, export.ErrUnknownScope):
			writeError(w, http.StatusBadRequest, "bad_scope", err)
		case errors.Is(err, export.ErrSchema):
			writeError(w, http.StatusUnprocessableEntity, "schema_error", err)
		case errors.Is(err, service.ErrNoRoster):
			writeError(w, http.StatusNotFound, "no_roster", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	w.Header().Set("Content-Type", tabular.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s.%s"`, scope, format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
