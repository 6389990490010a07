package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

// Service defines the manager methods the HTTP operator surface consumes.
type Service interface {
	ConfigSnapshot() types.ConfigResponse
	Status() types.StatusResponse
	ValidateBudget() (types.BudgetReport, error)
	Reselect(ctx context.Context, taskID, option string) error
	Load(ctx context.Context, taskID string) (types.Handle, error)
	Unload(taskID string) error
	Ready() bool
}

// MuxConfig carries the transport-level knobs plus the opaque batch hints
// echoed by GET /config.
type MuxConfig struct {
	BatchHints map[string]int
}

// NewMux builds the operator API router.
func NewMux(svc Service, cfg MuxConfig) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/config", handleConfig(svc, cfg))
	r.Get("/status", handleStatus(svc))
	r.Get("/validate", handleValidate(svc))
	r.Post("/select", handleSelect(svc))
	r.Post("/load", handleLoad(svc))
	r.Post("/unload", handleUnload(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// handleConfig godoc
// @Summary  Current spec table
// @Produce  json
// @Success  200 {object} types.ConfigResponse
// @Router   /config [get]
func handleConfig(svc Service, cfg MuxConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := svc.ConfigSnapshot()
		resp.BatchHints = cfg.BatchHints
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleStatus godoc
// @Summary  Currently loaded tasks and device capacity
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// handleValidate godoc
// @Summary  Budget report over the current selections
// @Produce  json
// @Success  200 {object} types.BudgetReport
// @Failure  502 {object} types.ErrorResponse
// @Router   /validate [get]
func handleValidate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.ValidateBudget()
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// handleSelect godoc
// @Summary  Change a task's selected option
// @Accept   json
// @Produce  json
// @Param    request body types.SelectRequest true "selection"
// @Success  204
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /select [post]
func handleSelect(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SelectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.TaskID) == "" || strings.TrimSpace(req.Option) == "" {
			writeJSONError(w, http.StatusBadRequest, "task_id and option are required")
			return
		}
		if err := svc.Reselect(r.Context(), req.TaskID, req.Option); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleLoad godoc
// @Summary  Eagerly load a task's selected resource
// @Accept   json
// @Produce  json
// @Param    request body types.TaskRequest true "task"
// @Success  200 {object} types.ResidentStatus
// @Failure  404 {object} types.ErrorResponse
// @Failure  507 {object} types.ErrorResponse
// @Router   /load [post]
func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.TaskID) == "" {
			writeJSONError(w, http.StatusBadRequest, "task_id is required")
			return
		}
		if _, err := svc.Load(r.Context(), req.TaskID); err != nil {
			writeManagerError(w, err)
			return
		}
		for _, res := range svc.Status().Residents {
			if res.TaskID == req.TaskID {
				writeJSON(w, http.StatusOK, res)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleUnload godoc
// @Summary  Unload a task's resource if resident
// @Accept   json
// @Produce  json
// @Param    request body types.TaskRequest true "task"
// @Success  204
// @Failure  400 {object} types.ErrorResponse
// @Router   /unload [post]
func handleUnload(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.TaskID) == "" {
			writeJSONError(w, http.StatusBadRequest, "task_id is required")
			return
		}
		if err := svc.Unload(req.TaskID); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeJSON enforces content type and body size, then decodes into dst.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are out; nothing useful left to do.
		return
	}
}

// writeManagerError maps manager error kinds to HTTP status codes.
func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsInvalidTask(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsInvalidOption(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case manager.IsResourceExhausted(err):
		writeJSONError(w, http.StatusInsufficientStorage, err.Error())
	case manager.IsLoadFailure(err):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	case manager.IsShuttingDown(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
