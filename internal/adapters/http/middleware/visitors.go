package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"signup/internal/application/viewstate"
)

// DefaultVisitorTTL is how long an idle visitor keeps its page state.
const DefaultVisitorTTL = 24 * time.Hour

const visitorCookieName = "signup_visitor"

type contextKey string

const visitorContextKey contextKey = "visitor"

// Visitor is one browser's page state, keyed by an opaque cookie token.
type Visitor struct {
	Token string
	Page  *viewstate.Controller

	lastSeen time.Time
}

// PageFactory creates the page controller for a new visitor.
type PageFactory func() (*viewstate.Controller, error)

// VisitorStore is an in-memory visitor store.
// INVARIANT: every stored Visitor has a non-nil Page
type VisitorStore struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
	factory  PageFactory
	ttl      time.Duration
	now      func() time.Time
	onChange func(n int)
}

// NewVisitorStore creates an empty store.
// PRE: factory is non-nil; ttl <= 0 selects DefaultVisitorTTL
func NewVisitorStore(factory PageFactory, ttl time.Duration) *VisitorStore {
	if ttl <= 0 {
		ttl = DefaultVisitorTTL
	}
	return &VisitorStore{
		visitors: make(map[string]*Visitor),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		onChange: func(int) {},
	}
}

// OnChange registers a callback that receives the visitor count after it changes.
func (vs *VisitorStore) OnChange(fn func(n int)) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.onChange = fn
}

// Create stores a new visitor with a fresh page.
// POST: Visitor is stored, its token is unique
func (vs *VisitorStore) Create() (*Visitor, error) {
	page, err := vs.factory()
	if err != nil {
		return nil, err
	}
	v := &Visitor{Token: uuid.NewString(), Page: page}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	v.lastSeen = vs.now()
	vs.visitors[v.Token] = v
	vs.onChange(len(vs.visitors))
	return v, nil
}

// Get retrieves a visitor by token and marks it as seen.
// POST: Returns false for unknown or expired tokens; expired visitors are removed
func (vs *VisitorStore) Get(token string) (*Visitor, bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.visitors[token]
	if !ok {
		return nil, false
	}
	if vs.now().Sub(v.lastSeen) > vs.ttl {
		vs.removeLocked(token)
		return nil, false
	}
	v.lastSeen = vs.now()
	return v, true
}

// Sweep removes every expired visitor and returns how many were removed.
func (vs *VisitorStore) Sweep() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	removed := 0
	for token, v := range vs.visitors {
		if vs.now().Sub(v.lastSeen) > vs.ttl {
			vs.removeLocked(token)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("visitor_event", "event", "swept", "removed", removed, "remaining", len(vs.visitors))
	}
	return removed
}

// Len returns the number of stored visitors.
func (vs *VisitorStore) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.visitors)
}

func (vs *VisitorStore) removeLocked(token string) {
	if v, ok := vs.visitors[token]; ok {
		v.Page.Close()
		delete(vs.visitors, token)
		vs.onChange(len(vs.visitors))
	}
}

// Visitors returns middleware that attaches the visitor to the request context,
// creating one (and setting its cookie) on first contact.
func Visitors(store *VisitorStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var v *Visitor
			if cookie, err := r.Cookie(visitorCookieName); err == nil && cookie.Value != "" {
				v, _ = store.Get(cookie.Value)
			}
			if v == nil {
				created, err := store.Create()
				if err != nil {
					slog.Error("visitor_create_failed", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				v = created
				setVisitorCookie(w, v.Token, secure, store.ttl)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithVisitor(r.Context(), v)))
		})
	}
}

// VisitorFromContext extracts the visitor from the request context.
func VisitorFromContext(ctx context.Context) (*Visitor, bool) {
	v, ok := ctx.Value(visitorContextKey).(*Visitor)
	return v, ok
}

// ContextWithVisitor returns a context carrying v.
func ContextWithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, visitorContextKey, v)
}

func setVisitorCookie(w http.ResponseWriter, token string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}
