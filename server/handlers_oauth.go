package server

import (
	"net/http"
	"strings"

	"github.com/ehealthMP/Omh-Schimmer/oauthmodel"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/go-chi/chi/v5"
)

// callbackResponse is what the callback route returns. Credentials go to the
// sink, never to the browser.
type callbackResponse struct {
	Type     oauthmodel.ResponseType `json:"type"`
	Username string                  `json:"username,omitempty"`
	ShimKey  string                  `json:"shimKey"`
	Details  string                  `json:"details,omitempty"`
}

func (s *Server) authorizer(w http.ResponseWriter, r *http.Request) (*shim.Authorizer, bool) {
	shimKey := chi.URLParam(r, paramShimKey)
	a, ok := s.registry.Get(shimKey)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown_shim", "no shim registered for "+shimKey)
		return nil, false
	}
	return a, true
}

// AuthorizeHandler starts a handshake and redirects the user to the
// provider. Clients asking for JSON get the public handshake parameters
// instead. Query parameters other than username are kept with the handshake.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authorizer(w, r)
		if !ok {
			return
		}

		query := r.URL.Query()
		username := query.Get(paramUsername)
		var extra map[string]string
		for k := range query {
			if k == paramUsername {
				continue
			}
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[k] = query.Get(k)
		}

		params, err := a.InitiateAuthorization(r.Context(), username, extra)
		if err != nil {
			s.writeShimError(w, r, err)
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, params.Public())
			return
		}
		http.Redirect(w, r, params.AuthorizationURL, http.StatusFound)
	}
}

// CallbackHandler completes a handshake when the provider redirects back.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authorizer(w, r)
		if !ok {
			return
		}

		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "malformed callback form")
				return
			}
			r.URL.RawQuery = r.Form.Encode()
		}

		resp, err := a.HandleAuthorizationCallback(r.Context(), r)
		if err != nil {
			s.writeShimError(w, r, err)
			return
		}

		if !resp.IsAuthorized() {
			writeJSON(w, http.StatusOK, callbackResponse{Type: resp.Type, ShimKey: a.ShimKey(), Details: resp.Details})
			return
		}

		params := resp.AccessParameters
		if err := s.sink.Authorized(r.Context(), a.ShimKey(), params); err != nil {
			s.logger.Error().Err(err).Str("shim", a.ShimKey()).Str("username", params.Username).Msg("failed to deliver access parameters")
			writeJSONError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
			return
		}

		writeJSON(w, http.StatusOK, callbackResponse{
			Type:     resp.Type,
			Username: params.Username,
			ShimKey:  a.ShimKey(),
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
