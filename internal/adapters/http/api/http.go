// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/adapters/tabular"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
)

// defaultMaxUpload caps roster uploads when no limit is configured.
const defaultMaxUpload = 10 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	Upload(ctx context.Context, r io.Reader, format tabular.Format) (types.UploadResult, error)
	Progress(ctx context.Context) model.Progress

	View(ctx context.Context) repository.View
	ApplyView(ctx context.Context, q types.ViewQuery) (repository.View, error)
	Distribution(ctx context.Context) []view.Bucket

	Select(ctx context.Context, generation uint64, rows []int) error
	Compare(ctx context.Context) ([]view.Series, error)

	Export(ctx context.Context, w io.Writer, scope string, format tabular.Format) error
}

// Server wires HTTP routes for the roster API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	rosterHandler *RosterHandler
	viewHandler   *ViewHandler
	selectHandler *SelectionHandler
	exportHandler *ExportHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxUpload int64
}

// WithMaxUploadBytes caps POST /roster bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxUpload = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := &serverOptions{maxUpload: defaultMaxUpload}
	for _, opt := range opts {
		opt(o)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		rosterHandler: NewRosterHandler(deps, o.maxUpload),
		viewHandler:   NewViewHandler(deps),
		selectHandler: NewSelectionHandler(deps),
		exportHandler: NewExportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/roster", MetricsMiddleware(s.rosterHandler.HandleUpload, "roster"))
	mux.HandleFunc("/roster/progress", MetricsMiddleware(s.rosterHandler.HandleProgress, "progress"))
	mux.HandleFunc("/roster/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("/roster/distribution", MetricsMiddleware(s.viewHandler.HandleDistribution, "distribution"))
	mux.HandleFunc("/roster/selection", MetricsMiddleware(s.selectHandler.HandleSelect, "selection"))
	mux.HandleFunc("/roster/compare", MetricsMiddleware(s.selectHandler.HandleCompare, "compare"))
	mux.HandleFunc("/roster/export", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
