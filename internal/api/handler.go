package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/surstitch/leadboard/internal/alerts"
	"github.com/surstitch/leadboard/internal/auth"
	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/leads"
	"github.com/surstitch/leadboard/internal/source"
	"github.com/surstitch/leadboard/internal/store"
	"github.com/surstitch/leadboard/internal/view"
)

// Page sizes for GET /api/v1/leads.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Options wires the handler to the rest of the service. Store and View are
// required; the remaining fields are optional.
type Options struct {
	Store *store.Store
	View  *view.View

	// Alerts lists alerts at /api/v1/alerts. Nil serves an empty list.
	Alerts *alerts.Engine

	// Source and CheckCert back /api/v1/source.
	Source    source.Description
	CheckCert func(ctx context.Context) *source.CertStatus

	// Stream is mounted at /ws/stream and Metrics at /metrics.
	Stream  http.Handler
	Metrics http.Handler

	// AuthMode, AuthHeader and AuthKey configure the API key check on every
	// route except /metrics.
	AuthMode   string
	AuthHeader string
	AuthKey    string

	AllowedOrigins []string
	Version        string
}

// Handler serves the /api/v1 JSON API, the WebSocket stream and /metrics.
type Handler struct {
	opts   Options
	router chi.Router
	now    func() time.Time
}

// New builds the router. Middleware order: request id, real ip, access log,
// panic recovery, CORS.
func New(opts Options) *Handler {
	h := &Handler{opts: opts, now: time.Now}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.AllowedOrigins, opts.AuthHeader))
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
		r.Method(http.MethodHead, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.APIKey(opts.AuthMode, opts.AuthHeader, opts.AuthKey))

		if opts.Stream != nil {
			r.Method(http.MethodGet, "/ws/stream", opts.Stream)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", h.health)
			r.Get("/metrics", h.metrics)
			r.Get("/filters", h.filters)
			r.Get("/leads", h.leads)
			r.Get("/view", h.getView)
			r.Put("/view", h.putView)
			r.Post("/view/reset", h.resetView)
			r.Post("/view/show-all", h.showAll)
			r.Post("/view/hide-all", h.hideAll)
			r.Post("/reload", h.reload)
			r.Get("/alerts", h.alerts)
			r.Get("/source", h.source)

			gz := gzhttp.GzipHandler
			r.Method(http.MethodGet, "/export", gz(http.HandlerFunc(h.exportView)))
			r.Method(http.MethodGet, "/export/full", gz(http.HandlerFunc(h.exportFull)))
		})
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: service and dataset status.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, h.healthResponse())
}

func (h *Handler) healthResponse() HealthResponse {
	st := h.opts.Store.Current()
	resp := HealthResponse{
		Status:      "ok",
		Version:     h.opts.Version,
		Dataset:     h.opts.Source.Name,
		Rows:        st.Rows(),
		Columns:     len(st.Table.Columns()),
		LoadError:   st.LoadError,
		Reloads:     st.Reloads,
		Failures:    st.Failures,
		HealthScore: st.Health.Score,
		State:       st.Health.State,
	}
	if st.LoadError != "" {
		resp.Status = "degraded"
	}
	if !st.LoadedAt.IsZero() {
		resp.LoadedAt = st.LoadedAt.UTC().Format(time.RFC3339)
	}
	if h.opts.Alerts != nil {
		resp.AlertCount = h.opts.Alerts.Firing()
	}
	return resp
}

// metrics returns GET /api/v1/metrics: full and filtered KPIs for the
// filters in the query string.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilters(r.URL.Query())
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, BuildMetrics(h.opts.Store, f))
}

// filters returns GET /api/v1/filters: the option lists of each control.
func (h *Handler) filters(w http.ResponseWriter, _ *http.Request) {
	st := h.opts.Store.Current()
	schema := h.opts.Store.Engine().Schema()
	jsonResp(w, http.StatusOK, FiltersResponse{
		Status:     withAll(compute.Options(st.Table, schema.Status)),
		Source:     withAll(compute.Options(st.Table, schema.Source)),
		Conversion: append([]string(nil), compute.ConversionOptions...),
	})
}

// leads returns GET /api/v1/leads: one page of filtered rows through the view.
func (h *Handler) leads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilters(q)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit", DefaultLimit)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	filtered := h.opts.Store.Process(f).Filtered
	resp := LeadsResponse{
		Columns: []view.Column{},
		Rows:    [][]string{},
		Total:   filtered.Len(),
		Offset:  offset,
		Limit:   limit,
	}
	for _, c := range h.opts.View.Columns(filtered) {
		if c.Visible {
			resp.Columns = append(resp.Columns, c)
		}
	}

	projected, err := h.opts.View.Project(filtered)
	if errors.Is(err, view.ErrNoColumns) {
		jsonResp(w, http.StatusOK, resp)
		return
	}
	for i := offset; i < projected.Len() && i < offset+limit; i++ {
		resp.Rows = append(resp.Rows, projected.Row(i))
	}
	jsonResp(w, http.StatusOK, resp)
}

// getView returns GET /api/v1/view.
func (h *Handler) getView(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, h.viewResponse())
}

// putView handles PUT /api/v1/view: replace the visible columns and labels.
func (h *Handler) putView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid view body: "+err.Error())
		return
	}
	h.opts.View.Replace(h.opts.Store.Current().Table, req.Columns, req.Labels)
	jsonResp(w, http.StatusOK, h.viewResponse())
}

// resetView handles POST /api/v1/view/reset.
func (h *Handler) resetView(w http.ResponseWriter, _ *http.Request) {
	h.opts.View.Reset()
	jsonResp(w, http.StatusOK, h.viewResponse())
}

// showAll handles POST /api/v1/view/show-all.
func (h *Handler) showAll(w http.ResponseWriter, _ *http.Request) {
	h.opts.View.ShowAll(h.opts.Store.Current().Table)
	jsonResp(w, http.StatusOK, h.viewResponse())
}

// hideAll handles POST /api/v1/view/hide-all.
func (h *Handler) hideAll(w http.ResponseWriter, _ *http.Request) {
	h.opts.View.HideAll(h.opts.Store.Current().Table)
	jsonResp(w, http.StatusOK, h.viewResponse())
}

func (h *Handler) viewResponse() ViewResponse {
	tbl := h.opts.Store.Current().Table
	return ViewResponse{
		Columns: h.opts.View.Columns(tbl),
		Visible: h.opts.View.Visible(tbl),
		Labels:  h.opts.View.Labels(),
	}
}

// reload handles POST /api/v1/reload. A failed load still swaps in the
// empty table, so the error is reported together with the new status.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Store.Reload(r.Context()); err != nil {
		jsonErr(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	jsonResp(w, http.StatusOK, h.healthResponse())
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, _ *http.Request) {
	if h.opts.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	out := h.opts.Alerts.Active()
	if out == nil {
		out = []*alerts.Alert{}
	}
	jsonResp(w, http.StatusOK, out)
}

// source returns GET /api/v1/source: where the dataset comes from and, for
// https sources, the server certificate status.
func (h *Handler) source(w http.ResponseWriter, r *http.Request) {
	resp := SourceResponse{Description: h.opts.Source}
	if h.opts.CheckCert != nil {
		resp.Cert = h.opts.CheckCert(r.Context())
	}
	jsonResp(w, http.StatusOK, resp)
}

// exportView returns GET /api/v1/export: the filtered rows, visible columns
// only, under their display labels.
func (h *Handler) exportView(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilters(r.URL.Query())
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.opts.Store.Process(f)
	tbl, err := h.opts.View.Project(res.Filtered)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeCSV(w, tbl, view.ExportName(h.now(), false))
}

// exportFull returns GET /api/v1/export/full: the filtered rows with every
// column.
func (h *Handler) exportFull(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilters(r.URL.Query())
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.opts.Store.Process(f)
	h.writeCSV(w, res.Filtered, view.ExportName(h.now(), true))
}

func (h *Handler) writeCSV(w http.ResponseWriter, ds leads.Dataset, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if err := leads.WriteCSV(w, ds); err != nil {
		slog.Error("api: export write failed", "file", name, "err", err)
	}
}

// --- shared with the WebSocket hub ------------------------------------------

// ParseFilters reads the status, source, converted and q query parameters.
// Missing parameters and "All" disable the corresponding filter.
func ParseFilters(q url.Values) (compute.Filters, error) {
	conv, err := compute.ParseConversion(q.Get("converted"))
	if err != nil {
		return compute.Filters{}, err
	}
	return compute.Filters{
		Status:    q.Get("status"),
		Source:    q.Get("source"),
		Converted: conv,
		Search:    q.Get("q"),
	}, nil
}

// BuildMetrics runs one dashboard pass over the store's current table.
func BuildMetrics(st *store.Store, f compute.Filters) MetricsResponse {
	res := st.Process(f)
	insights := res.Insights
	if insights == nil {
		insights = []compute.Insight{}
	}
	return MetricsResponse{
		GeneratedAt:    res.Timestamp.UTC().Format(time.RFC3339),
		Filters:        res.Filters,
		FilteredActive: res.FilteredActive,
		Full:           res.Full,
		Filtered:       res.Snapshot,
		Health:         breakdown(res.FullHealth),
		FilteredHealth: breakdown(res.Health),
		Insights:       insights,
		LoadError:      st.Current().LoadError,
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// withAll prepends the "All" choice to a filter option list.
func withAll(opts []string) []string {
	return append([]string{compute.All}, opts...)
}

// intParam parses a non-negative integer query parameter.
func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
