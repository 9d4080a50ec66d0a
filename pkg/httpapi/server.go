// Package httpapi serves the portfinder API as JSON over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/portfinder"
	"github.com/newtron-network/portfinder/pkg/resolver"
	"github.com/newtron-network/portfinder/pkg/util"
)

// DefaultRequestTimeout bounds one request, fleet fan-out included.
const DefaultRequestTimeout = 60 * time.Second

// UserHeader names the operator for audit events when a proxy in front of
// the server has authenticated them.
const UserHeader = "X-Remote-User"

// Finder is the part of portfinder.Service the API serves.
type Finder interface {
	Search(ctx context.Context, query string) (*resolver.Record, error)
	SearchAll(ctx context.Context, query string) ([]*resolver.Record, error)
	GetInterfaceDetails(ctx context.Context, host, intf string) (*resolver.Record, error)
	SubmitVlanChange(ctx context.Context, req change.Request) *change.Outcome
	Hosts() []portfinder.HostInfo
}

// API serves search and VLAN change requests over HTTP.
type API struct {
	finder  Finder
	timeout time.Duration
}

// New returns an API backed by finder. A non-positive timeout selects
// DefaultRequestTimeout.
func New(finder Finder, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &API{finder: finder, timeout: timeout}
}

// Handler returns the chi router with every route mounted.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.timeout))
	r.Use(RequestLogger)

	r.Get("/healthz", a.health)
	r.Route("/api", func(api chi.Router) {
		api.Get("/search", a.search)
		api.Get("/search/all", a.searchAll)
		api.Get("/hosts", a.listHosts)
		api.Get("/hosts/{host}/interfaces/*", a.interfaceDetails)
		api.Post("/vlan-change", a.vlanChange)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "hosts": len(a.finder.Hosts())})
}

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "empty_query", "Query parameter q is required")
		return
	}
	rec, err := a.finder.Search(r.Context(), q)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) searchAll(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "empty_query", "Query parameter q is required")
		return
	}
	recs, err := a.finder.SearchAll(r.Context(), q)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (a *API) listHosts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.finder.Hosts()})
}

// interfaceDetails takes the interface as the rest of the path so names
// like Gi1/0/5 need no escaping.
func (a *API) interfaceDetails(w http.ResponseWriter, r *http.Request) {
	intf, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || intf == "" {
		writeError(w, http.StatusBadRequest, "invalid_interface", "Interface name is required")
		return
	}
	rec, err := a.finder.GetInterfaceDetails(r.Context(), chi.URLParam(r, "host"), intf)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// vlanChange answers every workflow outcome with 200; the kind field says
// whether the change is pending, rejected, applied or failed.
func (a *API) vlanChange(w http.ResponseWriter, r *http.Request) {
	var req change.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	req.User = strings.TrimSpace(r.Header.Get(UserHeader))
	if req.User == "" {
		req.User = "api"
	}
	req.RequestID = middleware.GetReqID(r.Context())
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	out := a.finder.SubmitVlanChange(r.Context(), req)
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, util.ErrValidationFailed), errors.Is(err, util.ErrInvalidFormat):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, util.ErrTransport):
		return http.StatusBadGateway, "device_unreachable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// RunServer serves until ctx is cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	util.WithField("addr", server.Addr).Info("HTTP server listening")
	select {
	case <-ctx.Done():
		util.Logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
