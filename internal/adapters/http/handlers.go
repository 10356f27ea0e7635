package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/csrf"

	"signup/internal/adapters/http/middleware"
	"signup/internal/application/viewstate"
)

// perfWindow is how far back /debug/perf aggregates.
const perfWindow = time.Hour

// pageData is what the index template renders.
type pageData struct {
	View       viewstate.Snapshot
	Activities template.HTML
	CSRFField  template.HTML
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

// pageFor returns the visitor's page with its initial load done.
func pageFor(w http.ResponseWriter, r *http.Request) (*viewstate.Controller, bool) {
	v, ok := middleware.VisitorFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("page route without visitor"))
		return nil, false
	}
	v.Page.Init(r.Context())
	return v.Page, true
}

func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}

	snap := page.Snapshot()
	field := csrf.TemplateField(r)
	data := pageData{
		View:       snap,
		Activities: renderChildren(snap.Activities, field),
		CSRFField:  field,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.pages.Execute(w, data); err != nil {
		slog.Error("render_failed", "error", err)
	}
}

// handleBannerCSS handles GET /banner.css
// POST: The banner fade starts after opts.BannerDelay, matching the server-side hide
func (s *Server) handleBannerCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "#message.success,\n#message.error {\n  animation-delay: %dms;\n}\n", s.opts.BannerDelay.Milliseconds())
}

// handleViewJSON handles GET /view.json
func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, page.Snapshot())
}

// handleSignup handles POST /signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	_ = page.Signup(r.Context(), r.PostFormValue("email"), r.PostFormValue("activity"))
	backToPage(w, r)
}

// handleUnregister handles POST /unregister. The form carries the control ID, not the email.
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	_ = page.Dispatch(r.Context(), r.PostFormValue("control"))
	backToPage(w, r)
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	_ = page.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	backToPage(w, r)
}

// handleLogout handles POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	_ = page.Logout(r.Context())
	backToPage(w, r)
}

// handleAdminToggle handles POST /admin/toggle
func (s *Server) handleAdminToggle(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFor(w, r)
	if !ok {
		return
	}
	page.ToggleAdminPanel()
	backToPage(w, r)
}

// handleHealth handles GET /healthz
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePerf handles GET /debug/perf
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.opts.Collector == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Collector.Snapshot(time.Now().Add(-perfWindow), 10))
}
