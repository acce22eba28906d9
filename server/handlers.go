package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	healthTimeout   = 2 * time.Second
	statusOK        = "ok"
	statusUnhealthy = "unhealthy"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// statusForError maps an error kind to the HTTP status returned to the caller.
func statusForError(err error) int {
	switch shimerrors.KindOf(err) {
	case shimerrors.KindInvalidState, shimerrors.KindInvalidRequest:
		return http.StatusBadRequest
	case shimerrors.KindTokenExchange, shimerrors.KindProviderProtocol:
		return http.StatusBadGateway
	case shimerrors.KindStateStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeShimError reports err to the client. Server side failures get a
// generic message so configuration details do not leak.
func (s *Server) writeShimError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	kind := shimerrors.KindOf(err)

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Str("kind", string(kind)).Str("path", r.URL.Path).Msg("shim request failed")

	message := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		message = http.StatusText(status)
	}
	writeJSONError(w, status, string(kind), message)
}

// ShimsHandler lists the registered shim keys.
func (s *Server) ShimsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"shims": s.registry.Keys()})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	App    string            `json:"app"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler runs the registered dependency checks.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp := healthResponse{Status: statusOK, App: s.config.GetAppName()}
		status := http.StatusOK
		for _, name := range names {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(names))
			}
			if err := s.checks[name](ctx); err != nil {
				s.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
				resp.Checks[name] = statusUnhealthy
				resp.Status = statusUnhealthy
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = statusOK
		}
		writeJSON(w, status, resp)
	}
}
