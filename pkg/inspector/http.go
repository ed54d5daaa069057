package inspector

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/rvar/pkg/rvar"
)

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Epoch   rvar.UpdateID    `json:"epoch"`
	Watched int              `json:"watched"`
	Clients int              `json:"clients"`
	Last    rvar.UpdateStats `json:"last"`
}

// Handler returns the HTTP handler serving the inspector routes.
func (in *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(in.logRequests)

	r.Get("/vars", in.handleVars)
	r.Get("/vars/{name}", in.handleVar)
	r.Get("/vars/{name}/history", in.handleHistory)
	r.Get("/stats", in.handleStats)
	r.Get("/snapshot", in.handleSnapshot)
	r.Post("/snapshot", in.handleExport)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(in.gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", in.ServeWS)
	return r
}

func (in *Inspector) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		in.logger.Debug("inspector request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (in *Inspector) handleVars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, in.Vars())
}

func (in *Inspector) handleVar(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	state, ok := in.Var(name)
	if !ok {
		writeError(w, http.StatusNotFound, "variable not watched: "+name)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (in *Inspector) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	history, ok := in.History(name)
	if !ok {
		writeError(w, http.StatusNotFound, "variable not watched: "+name)
		return
	}
	if history == nil {
		history = []Change{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (in *Inspector) handleStats(w http.ResponseWriter, r *http.Request) {
	in.mu.RLock()
	watched := len(in.vars)
	clients := len(in.clients)
	in.mu.RUnlock()
	writeJSON(w, http.StatusOK, StatsResponse{
		Epoch:   in.rt.Epoch(),
		Watched: watched,
		Clients: clients,
		Last:    in.rt.LastUpdateStats(),
	})
}

func (in *Inspector) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, in.Snapshot())
}

func (in *Inspector) handleExport(w http.ResponseWriter, r *http.Request) {
	if in.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot store configured")
		return
	}
	key, err := in.Export(r.Context(), in.store)
	if err != nil {
		in.logger.Error("snapshot export failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
