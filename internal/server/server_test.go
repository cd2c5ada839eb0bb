package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
	"github.com/vyrodovalexey/stockmatch/internal/config"
	"github.com/vyrodovalexey/stockmatch/internal/handler"
	"github.com/vyrodovalexey/stockmatch/internal/model"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

// testAuthenticator is a mock authenticator for server tests.
type testAuthenticator struct {
	info   *auth.AuthInfo
	err    error
	method auth.AuthMethod
}

func (a *testAuthenticator) Authenticate(_ *http.Request) (*auth.AuthInfo, error) {
	return a.info, a.err
}

func (a *testAuthenticator) Method() auth.AuthMethod {
	return a.method
}

func testConfig(port int, metrics bool) *config.Config {
	return &config.Config{
		ServerPort:      port,
		LogLevel:        "info",
		ShutdownTimeout: 5 * time.Second,
		MetricsEnabled:  metrics,
		RequestTimeout:  2 * time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, authenticator auth.Authenticator) *Server {
	t.Helper()
	sup := session.NewSupervisor(session.DefaultConfig(), zap.NewNop())
	t.Cleanup(sup.Shutdown)
	return New(cfg, zap.NewNop(), store.NewMemoryStore(), store.NewMemoryBlacklist(), sup, authenticator)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestNew(t *testing.T) {
	// Act
	server := newTestServer(t, testConfig(8080, true), nil)

	// Assert
	if server.router == nil || server.config == nil || server.logger == nil {
		t.Fatal("New() left core fields unset")
	}
	if server.httpServer == nil {
		t.Error("httpServer should not be nil")
	}
	if server.wsHandler == nil {
		t.Error("wsHandler should not be nil")
	}
	if server.authenticator != nil {
		t.Error("authenticator should be nil when none is given")
	}
	if server.Router() != server.router {
		t.Error("Router() should return the server's router")
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantStatus int
	}{
		{name: "enabled", enabled: true, wantStatus: http.StatusOK},
		{name: "disabled", enabled: false, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			server := newTestServer(t, testConfig(8080, tt.enabled), nil)

			// Act
			rr := serve(server, http.MethodGet, "/metrics", "")

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("/metrics status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, true), nil)

	// Act
	rr := serve(server, http.MethodGet, "/health", "")

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
	var resp model.APIResponse[handler.HealthResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Data.Status != "healthy" {
		t.Errorf("health = %+v", resp)
	}
}

func TestServer_CatalogAndSearch(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, true), nil)
	catalog := `[{"code":"A","description":"Rice","quantity":3,"sale_price":"5.00","profit_margin":"0.1"},` +
		`{"code":"B","description":"Beans","quantity":1,"sale_price":"7.00","profit_margin":"0.1"}]`

	// Act
	imported := serve(server, http.MethodPut, "/api/v1/items", catalog)
	searched := serve(server, http.MethodPost, "/api/v1/search", `{"price":"17","mode":"multi","tolerance":"0"}`)

	// Assert
	if imported.Code != http.StatusOK {
		t.Fatalf("import status = %d, want %d", imported.Code, http.StatusOK)
	}
	if searched.Code != http.StatusOK {
		t.Fatalf("search status = %d, want %d (body %s)", searched.Code, http.StatusOK, searched.Body.String())
	}
	var resp model.APIResponse[model.SearchResult]
	if err := json.NewDecoder(searched.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Data.Found() || resp.Data.Total.String() != "17" {
		t.Errorf("search result = %+v", resp.Data)
	}
}

func TestServer_WebSocketEndpoint(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, true), nil)

	// Act
	rr := serve(server, http.MethodGet, "/ws/search", "")

	// Assert - the upgrade fails but the route exists
	if rr.Code == http.StatusNotFound {
		t.Error("WebSocket endpoint /ws/search not found")
	}
}

func TestServer_MiddlewareApplied(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, true), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	// Act
	server.router.ServeHTTP(rr, req)

	// Assert
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set by middleware")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS headers should be set by middleware")
	}
}

func TestServer_WithAuthenticator(t *testing.T) {
	// Arrange
	authenticator := &testAuthenticator{err: auth.ErrUnauthenticated, method: auth.AuthMethodBasic}
	server := newTestServer(t, testConfig(8080, true), authenticator)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "catalog is protected", method: http.MethodGet, path: "/api/v1/items", wantStatus: http.StatusUnauthorized},
		{name: "search is protected", method: http.MethodPost, path: "/api/v1/search", wantStatus: http.StatusUnauthorized},
		{name: "websocket upgrade is protected", method: http.MethodGet, path: "/ws/search", wantStatus: http.StatusUnauthorized},
		{name: "health is public", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := serve(server, tt.method, tt.path, "")

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_AuthenticatedRequestPasses(t *testing.T) {
	// Arrange
	authenticator := &testAuthenticator{
		info:   &auth.AuthInfo{Method: auth.AuthMethodAPIKey, Subject: "till-1"},
		method: auth.AuthMethodAPIKey,
	}
	server := newTestServer(t, testConfig(8080, false), authenticator)

	// Act
	rr := serve(server, http.MethodGet, "/api/v1/items", "")

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestServer_HTTPServerConfiguration(t *testing.T) {
	tests := []struct {
		name             string
		port             int
		requestTimeout   time.Duration
		wantAddr         string
		wantWriteTimeout time.Duration
	}{
		{name: "default", port: 8080, requestTimeout: 2 * time.Second, wantAddr: ":8080", wantWriteTimeout: 15 * time.Second},
		{name: "long searches", port: 3000, requestTimeout: 30 * time.Second, wantAddr: ":3000", wantWriteTimeout: 35 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := testConfig(tt.port, false)
			cfg.RequestTimeout = tt.requestTimeout

			// Act
			server := newTestServer(t, cfg, nil)

			// Assert
			if server.httpServer.Addr != tt.wantAddr {
				t.Errorf("Addr = %s, want %s", server.httpServer.Addr, tt.wantAddr)
			}
			if server.httpServer.WriteTimeout != tt.wantWriteTimeout {
				t.Errorf("WriteTimeout = %v, want %v", server.httpServer.WriteTimeout, tt.wantWriteTimeout)
			}
			if server.httpServer.ReadHeaderTimeout != 5*time.Second {
				t.Errorf("ReadHeaderTimeout = %v, want 5s", server.httpServer.ReadHeaderTimeout)
			}
			if server.httpServer.MaxHeaderBytes != 1<<20 {
				t.Errorf("MaxHeaderBytes = %d, want %d", server.httpServer.MaxHeaderBytes, 1<<20)
			}
		})
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(18090, false), nil)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(ctx)

	// Assert
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Start() error = %v, want nil after shutdown", err)
	}
}

func TestServer_Start_PortInUse(t *testing.T) {
	// Arrange
	first := newTestServer(t, testConfig(18091, false), nil)
	go func() { _ = first.Start() }()
	time.Sleep(100 * time.Millisecond)
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	second := newTestServer(t, testConfig(18091, false), nil)

	// Act
	err := second.Start()

	// Assert
	if err == nil {
		t.Error("Start() on a busy port should fail")
	}
}
