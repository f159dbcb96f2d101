// Package server exposes the roster HTTP API.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"jailroster/internal/app"
	"jailroster/internal/mailer"
	"jailroster/internal/util"
	"jailroster/pkg/auth"
	"jailroster/pkg/domain"
	"jailroster/pkg/store"
)

const (
	sessionCookieName = "roster_session"
	maxBodyBytes      = 1 << 20
	maxUploadBytes    = 16 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Directory      *auth.Directory
	Sessions       *auth.SessionManager
	SessionTTL     time.Duration
	AllowedOrigins []string
}

// Server exposes HTTP endpoints for the roster service.
type Server struct {
	app        *app.App
	directory  *auth.Directory
	sessions   *auth.SessionManager
	sessionTTL time.Duration
	origins    []string
	mux        *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	s := &Server{
		app:        cfg.App,
		directory:  cfg.Directory,
		sessions:   cfg.Sessions,
		sessionTTL: ttl,
		origins:    cfg.AllowedOrigins,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the fully wrapped handler chain.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(s.origins, h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// roster
	s.mux.Handle("/api/roster", s.authenticated(s.handleRoster))
	s.mux.Handle("/api/roster/", s.authenticated(s.handleRosterByID))
	s.mux.Handle("/api/roster/clear", s.requireRole(domain.RoleAdministrator, s.handleClear))
	s.mux.Handle("/api/roster/import", s.requireRole(domain.RoleSupervisor, s.handleImportExcel))
	s.mux.Handle("/api/roster/import/json", s.requireRole(domain.RoleAdministrator, s.handleImportJSON))
	s.mux.Handle("/api/roster/export", s.authenticated(s.handleExportExcel))
	s.mux.Handle("/api/roster/export/pdf", s.authenticated(s.handleExportPDF))
	s.mux.Handle("/api/roster/export/pdf/email", s.authenticated(s.handleEmailReport))
	s.mux.Handle("/api/roster/export/json", s.authenticated(s.handleExportJSON))

	// auth
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/auth/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/auth/change-password", s.authenticated(s.handleChangePassword))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type sessionHandler func(http.ResponseWriter, *http.Request, domain.Session)

func (s *Server) authenticated(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, session)
	})
}

func (s *Server) requireRole(role domain.Role, next sessionHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, session domain.Session) {
		if !session.Role.Satisfies(role) {
			util.LoggerFromContext(r.Context()).Warn("authorization_denied",
				"username", session.Username,
				"role", string(session.Role),
				"required", string(role),
				"path", r.URL.Path,
				"client_ip", clientIP(r),
			)
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next(w, r, session)
	})
}

func (s *Server) authorize(r *http.Request) (domain.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return domain.Session{}, false
	}
	return s.sessions.Resolve(cookie.Value)
}

// roster handlers
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request, session domain.Session) {
	switch r.Method {
	case http.MethodGet:
		records, err := s.app.ListRecords(r.Context())
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if records == nil {
			records = []domain.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	case http.MethodPost:
		var p domain.PartialRecord
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rec, err := s.app.CreateRecord(r.Context(), session.Username, p)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRosterByID(w http.ResponseWriter, r *http.Request, session domain.Session) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/roster/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleRecord(w, r, session, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] == "photo":
		s.handlePhoto(w, r, session, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request, session domain.Session, id string) {
	switch r.Method {
	case http.MethodGet:
		rec, err := s.app.GetRecord(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var p domain.PartialRecord
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rec, err := s.app.UpdateRecord(r.Context(), session.Username, id, p)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if !session.Role.Satisfies(domain.RoleSupervisor) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		if err := s.app.DeleteRecord(r.Context(), session.Username, id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "record deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request, session domain.Session, id string) {
	switch r.Method {
	case http.MethodGet:
		body, err := s.app.Photo(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		defer body.Close()
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)
	case http.MethodPost:
		img, ok := readUpload(w, r, "photo", ".png", ".jpg", ".jpeg")
		if !ok {
			return
		}
		if err := s.app.AttachPhoto(r.Context(), session.Username, id, img); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "photo attached"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	count, err := s.app.ClearRecords(r.Context(), session.Username)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "roster cleared",
		"clearedCount": count,
	})
}

func (s *Server) handleImportExcel(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	data, ok := readUpload(w, r, "file", ".xlsx")
	if !ok {
		return
	}
	result, err := s.app.ImportExcel(r.Context(), session.Username, bytes.NewReader(data))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	data, ok := readUpload(w, r, "file", ".json")
	if !ok {
		return
	}
	result, err := s.app.ImportJSON(r.Context(), session.Username, bytes.NewReader(data))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	data, err := s.app.ExportExcel(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeAttachment(w, data,
		fmt.Sprintf("jail_roster_%s.xlsx", time.Now().Format("2006-01-02")),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	data, err := s.app.ExportPDF(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeAttachment(w, data,
		fmt.Sprintf("jail_roster_%s.pdf", time.Now().Format("2006-01-02")),
		"application/pdf")
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	data, err := s.app.ExportJSON(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeAttachment(w, data,
		fmt.Sprintf("jail_roster_%s.json", time.Now().Format("2006-01-02")),
		"application/json")
}

func (s *Server) handleEmailReport(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req emailReportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.EmailReport(r.Context(), session.Username, req.Email); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "report sent to " + req.Email,
	})
}

// auth handlers
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.directory.Authenticate(req.Username, req.Password)
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("login_failed",
			"username", req.Username,
			"client_ip", clientIP(r),
		)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	token, session, err := s.sessions.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.setSessionCookie(w, r, token, s.sessionTTL)
	util.LoggerFromContext(r.Context()).Info("login_succeeded",
		"username", session.Username,
		"role", string(session.Role),
		"client_ip", clientIP(r),
	)
	writeJSON(w, http.StatusOK, map[string]any{"user": sessionUser(session)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.sessions.Revoke(cookie.Value); err != nil {
			util.LoggerFromContext(r.Context()).Warn("session_revoke_failed", "error", err)
		}
	}
	s.setSessionCookie(w, r, "", -time.Hour)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": sessionUser(session)})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}
	if err := s.directory.ChangePassword(session.Username, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrNoData), errors.Is(err, app.ErrImportFatal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNoPhoto):
		writeError(w, http.StatusNotFound, "photo not found")
	case errors.Is(err, app.ErrPhotoStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, mailer.ErrTransportAuth):
		writeError(w, http.StatusUnauthorized, "mail service authentication failed")
	case errors.Is(err, mailer.ErrNotConfigured), errors.Is(err, mailer.ErrTransport):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed",
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// readUpload pulls a single multipart file field, enforcing the allowed
// filename extensions.
func readUpload(w http.ResponseWriter, r *http.Request, field string, extensions ...string) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", field))
		return nil, false
	}
	defer file.Close()
	name := strings.ToLower(header.Filename)
	allowed := false
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		writeError(w, http.StatusBadRequest,
			"unsupported file type, expected "+strings.Join(extensions, ", "))
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return nil, false
	}
	return data, true
}

func writeAttachment(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sessionUser(s domain.Session) map[string]any {
	return map[string]any{
		"username":  s.Username,
		"role":      string(s.Role),
		"name":      s.Name,
		"loginTime": s.LoginTime.Format(time.RFC3339),
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type emailReportRequest struct {
	Email string `json:"email"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
