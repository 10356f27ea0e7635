package browser_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"signup/internal/adapters/backend"
	"signup/internal/adapters/devbackend"
	web "signup/internal/adapters/http"
	"signup/internal/adapters/http/middleware"
	"signup/internal/adapters/http/perf"
	"signup/internal/adapters/storage"
	activityStore "signup/internal/adapters/storage/activity"
	"signup/internal/application/viewstate"
	"signup/internal/domain/activity"
)

const (
	adminUser     = "admin"
	adminPassword = "TestPass123!"
)

// testApp holds the running front end, its dev backend, and Playwright handles.
type testApp struct {
	BaseURL string
	Backend *httptest.Server
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp starts a dev backend seeded with activities, a front end pointed at it, and a browser.
func newTestApp(t *testing.T, activities ...activity.Activity) *testApp {
	t.Helper()

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	store := activityStore.NewSQLiteStore(db)
	if _, err := devbackend.Seed(context.Background(), store, activities); err != nil {
		t.Fatalf("failed to seed activities: %v", err)
	}
	auth, err := devbackend.NewAuth(adminUser, adminPassword, "browser-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to configure admin: %v", err)
	}
	backendSrv := httptest.NewServer(devbackend.NewServer(store, auth, nil, false).Router())

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	visitors := middleware.NewVisitorStore(func() (*viewstate.Controller, error) {
		client, err := backend.NewClient(backendSrv.URL)
		if err != nil {
			return nil, err
		}
		return viewstate.New(viewstate.Deps{Backend: client}), nil
	}, time.Hour)

	server, err := web.NewServer(web.Options{
		Visitors:  visitors,
		Collector: perf.NewCollector(1000),
		CSRFKey:   []byte("browser-test-csrf-key-32-bytes!!"),
		TrustedOrigins: []string{
			fmt.Sprintf("127.0.0.1:%d", port),
			fmt.Sprintf("localhost:%d", port),
		},
		RateLimitPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: server.Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Start Playwright; machines without browsers skip rather than fail.
	pw, err := playwright.Run()
	if err != nil {
		srv.Close()
		backendSrv.Close()
		db.Close()
		t.Skipf("playwright unavailable: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		srv.Close()
		backendSrv.Close()
		db.Close()
		t.Skipf("chromium unavailable: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		Backend: backendSrv,
		Server:  srv,
		PW:      pw,
		Browser: browser,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		backendSrv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab) on the activity page.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	if _, err := page.Goto(a.BaseURL + "/"); err != nil {
		t.Fatalf("failed to navigate to page: %v", err)
	}
	return page
}

// login opens the admin panel and signs in.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	if err := page.Locator("#admin-toggle").Click(); err != nil {
		t.Fatalf("failed to open admin panel: %v", err)
	}
	if err := page.Locator("#admin-username").Fill(adminUser); err != nil {
		t.Fatalf("failed to fill username: %v", err)
	}
	if err := page.Locator("#admin-password").Fill(adminPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("#login-form button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.Locator("#admin-status").Filter(playwright.LocatorFilterOptions{
		HasText: "Admin mode enabled",
	}).WaitFor(); err != nil {
		t.Fatalf("login did not enable admin mode: %v", err)
	}
}

// text returns the trimmed text of the first element matching selector.
func text(t *testing.T, page playwright.Page, selector string) string {
	t.Helper()
	s, err := page.Locator(selector).First().TextContent()
	if err != nil {
		t.Fatalf("failed to read %s: %v", selector, err)
	}
	return s
}
