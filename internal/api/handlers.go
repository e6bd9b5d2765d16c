package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "mergington-activities/internal/common/errors"
)

const staticIndex = "/static/index.html"

// MessageResponse is the body of a successful signup or unregister.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, staticIndex, http.StatusTemporaryRedirect)
}

// handleIndex serves the page directly; http.FileServer would redirect
// .../index.html to the directory.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(s.cfg.StaticDir, "index.html"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.ListActivities(r.Context())
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(r)
	if !ok {
		s.errors.HandleHTTPError(w, r, apperrors.NewMissingParameterError("email"))
		return
	}

	msg, err := s.registry.Signup(r.Context(), r.PathValue("activity_name"), email)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(r)
	if !ok {
		s.errors.HandleHTTPError(w, r, apperrors.NewMissingParameterError("email"))
		return
	}

	msg, err := s.registry.Unregister(r.Context(), r.PathValue("activity_name"), email)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ReadinessCheck != nil {
		if err := s.cfg.ReadinessCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
				"time":   s.now().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

// emailParam reports whether the email query parameter was supplied. An
// empty value counts as supplied.
func emailParam(r *http.Request) (string, bool) {
	q := r.URL.Query()
	if !q.Has("email") {
		return "", false
	}
	return q.Get("email"), true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
