// Package devbackend is a local implementation of the activity REST backend.
// It serves the same surface the page consumes, backed by SQLite, so the front end
// can run and be browser-tested without the production service.
package devbackend

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"signup/internal/adapters/http/perf"
	storeActivity "signup/internal/adapters/storage/activity"
	"signup/internal/domain/activity"
)

// Response details, shown verbatim by the page.
const (
	DetailLoginRequired = "Admin login required"
	DetailNotFound      = "Activity not found"
	DetailAlreadySigned = "Student is already signed up"
	DetailFull          = "Activity is full"
	DetailNotSignedUp   = "Student is not signed up for this activity"
	DetailInvalidLogin  = "Invalid credentials"
	DetailEmailRequired = "Email is required"
)

// Server handles the backend REST routes.
type Server struct {
	store     storeActivity.Store
	auth      *Auth
	collector *perf.Collector
	secure    bool
}

// NewServer creates a backend server.
// PRE: store and auth are non-nil
func NewServer(store storeActivity.Store, auth *Auth, collector *perf.Collector, secure bool) *Server {
	return &Server{store: store, auth: auth, collector: collector, secure: secure}
}

// Router builds the route table. Paths are matched encoded so names may contain "/".
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()

	r.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/activities", s.handleActivities).Methods(http.MethodGet)
	r.HandleFunc("/activities/{name}/signup", s.requireAdmin(s.handleSignup)).Methods(http.MethodPost)
	r.HandleFunc("/activities/{name}/unregister", s.requireAdmin(s.handleUnregister)).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/debug/perf", s.handlePerf).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// sessionUser returns the admin named by the session cookie, if it is valid.
func (s *Server) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	user, err := s.auth.Verify(cookie.Value)
	if err != nil {
		slog.Debug("session_rejected", "error", err)
		return "", false
	}
	return user, true
}

// requireAdmin rejects requests without a valid admin session with 401.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			writeDetail(w, http.StatusUnauthorized, DetailLoginRequired)
			return
		}
		next(w, r)
	}
}

// activityName decodes the {name} path segment.
func activityName(r *http.Request) (string, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// handleMe handles GET /auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	body := map[string]any{"authenticated": ok}
	if ok {
		body["username"] = user
	}
	writeJSON(w, http.StatusOK, body)
}

// handleLogin handles POST /auth/login?username=&password=
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("username")
	token, err := s.auth.Login(username, q.Get("password"))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.Warn("login_failed", "username", username)
			writeDetail(w, http.StatusUnauthorized, DetailInvalidLogin)
			return
		}
		slog.Error("login_error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.auth.TTL().Seconds()),
	})
	slog.Info("login", "username", username)
	writeMessage(w, "Logged in as "+username)
}

// handleLogout handles POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeMessage(w, "Logged out")
}

// handleActivities handles GET /activities. The body is an object keyed by name, in list order.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	coll, err := s.store.List(r.Context())
	if err != nil {
		slog.Error("list_activities_failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	var buf bytes.Buffer
	if err := activity.EncodeCollection(&buf, coll); err != nil {
		slog.Error("encode_activities_failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

// handleSignup handles POST /activities/{name}/signup?email=
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	name, ok := activityName(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		writeDetail(w, http.StatusBadRequest, DetailEmailRequired)
		return
	}

	if err := s.store.AddParticipant(r.Context(), name, email); err != nil {
		s.writeStoreError(w, err)
		return
	}
	slog.Info("participant_added", "activity", name)
	writeMessage(w, "Signed up "+email+" for "+name)
}

// handleUnregister handles DELETE /activities/{name}/unregister?email=
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	name, ok := activityName(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		writeDetail(w, http.StatusBadRequest, DetailEmailRequired)
		return
	}

	if err := s.store.RemoveParticipant(r.Context(), name, email); err != nil {
		s.writeStoreError(w, err)
		return
	}
	slog.Info("participant_removed", "activity", name)
	writeMessage(w, "Unregistered "+email+" from "+name)
}

// writeStoreError maps store rejections to their status and detail.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storeActivity.ErrNotFound):
		writeDetail(w, http.StatusNotFound, DetailNotFound)
	case errors.Is(err, storeActivity.ErrAlreadySignedUp):
		writeDetail(w, http.StatusBadRequest, DetailAlreadySigned)
	case errors.Is(err, storeActivity.ErrFull):
		writeDetail(w, http.StatusBadRequest, DetailFull)
	case errors.Is(err, storeActivity.ErrNotSignedUp):
		writeDetail(w, http.StatusBadRequest, DetailNotSignedUp)
	default:
		slog.Error("store_error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePerf handles GET /debug/perf
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.collector.Snapshot(time.Now().Add(-time.Hour), 10))
}
