package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/config"
	"github.com/conveydesk/conveydesk/internal/conveyancing"
	"github.com/conveydesk/conveydesk/internal/logger"
	"github.com/conveydesk/conveydesk/internal/session"
	"github.com/conveydesk/conveydesk/internal/version"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResults struct {
	User json.RawMessage `json:"user,omitempty"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, version.Get())
}

// handleLogin logs in against the API and keeps the returned token in the session cookie.
// The response is the login envelope with the token removed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqLogger := logger.ContextRequestLogger(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	// each login gets its own store: the token only lives in the cookie
	store := session.NewMemoryStore()
	auth := conveyancing.NewAuth(s.client, store, nil)

	sess, res, err := auth.Login(r.Context(), req.Email, req.Password)
	logger.ContextWithLogAttrs(r.Context(), slog.Int("upstream_status", res.Status))

	if !res.OK {
		respondWithJSON(w, http.StatusOK, res)
		return
	}
	if err != nil {
		reqLogger.Error("login response rejected",
			slog.String("component", "gateway.handleLogin"),
			slog.String("error", err.Error()),
		)
		respondWithError(w, r, http.StatusBadGateway, client.MsgUnknownError)
		return
	}

	results, err := json.Marshal(loginResults{User: sess.User})
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, client.MsgUnknownError)
		return
	}

	s.setSessionCookie(w, sess.Token)
	respondWithJSON(w, http.StatusOK, client.Result{
		OK:      true,
		Status:  res.Status,
		Results: results,
	})
}

// handleLogout revokes the token upstream (best effort) and always clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	store := session.NewMemoryStore()
	if cookie, err := r.Cookie(config.SessionCookieName); err == nil && cookie.Value != "" {
		_ = store.Set(session.Session{Token: cookie.Value})
	}

	res, err := conveyancing.NewAuth(s.client, store, nil).Logout(r.Context())
	if err != nil {
		logger.ContextRequestLogger(r.Context()).Warn("logout failed",
			slog.String("component", "gateway.handleLogout"),
			slog.String("error", err.Error()),
		)
	}
	logger.ContextWithLogAttrs(r.Context(), slog.Int("upstream_status", res.Status))

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleForward sends /ui-api/{path} to the API as {path} with the session token and returns the result envelope.
// API failures are part of the envelope, so the response status is 200 whenever a result was produced.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	token, _ := ContextSessionToken(r.Context())

	path := strings.TrimPrefix(r.URL.EscapedPath(), uiAPIPrefix)
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	body, status, err := forwardBody(r)
	if err != nil {
		respondWithError(w, r, status, err.Error())
		return
	}

	d := client.Descriptor{
		Path:          path,
		Method:        r.Method,
		Body:          body,
		ExplicitToken: token,
	}
	if requestID := chimiddleware.GetReqID(r.Context()); requestID != "" {
		d.Headers = map[string]string{"X-Request-ID": requestID}
	}

	res := s.client.Send(r.Context(), d)
	logger.ContextWithLogAttrs(r.Context(), slog.Int("upstream_status", res.Status))

	if res.Status == http.StatusUnauthorized {
		s.clearSessionCookie(w)
	}
	respondWithJSON(w, http.StatusOK, res)
}

// forwardBody converts the incoming body into a request body for the API.
// Multipart forms are re-encoded, anything else is forwarded verbatim as JSON.
func forwardBody(r *http.Request) (client.Body, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		form, err := readMultipartForm(r)
		if err != nil {
			return nil, statusForBodyError(err), err
		}
		return form, 0, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, statusForBodyError(err), errors.New("Could not read request body.")
	}
	if len(data) == 0 {
		return nil, 0, nil
	}
	if !json.Valid(data) {
		return nil, http.StatusBadRequest, errors.New("Request body must be JSON or multipart/form-data.")
	}
	return client.JSON(data), 0, nil
}

// readMultipartForm reads the parts in the order they were sent. The body is already bounded by the request size limit.
func readMultipartForm(r *http.Request) (*client.Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("Invalid multipart form: %w", err)
	}

	form := &client.Form{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, fmt.Errorf("Invalid multipart form: %w", err)
		}

		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		content, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("Could not read form part %s: %w", name, err)
		}

		if filename := part.FileName(); filename != "" {
			form.AddFile(name, filename, content)
		} else {
			form.Add(name, string(content))
		}
	}
}

func statusForBodyError(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
