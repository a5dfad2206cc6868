package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/smartlight-core/internal/api"
)

// writeTestConfig writes a config with MQTT and InfluxDB disabled that
// listens on port and stores data under dir.
func writeTestConfig(t *testing.T, dir string, port int, dbPath string) string {
	t.Helper()
	content := fmt.Sprintf(`
site:
  id: test-site

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 5
    write: 5
    idle: 5

security:
  jwt:
    secret: "test-secret-key-at-least-32-characters-long"
  bootstrap:
    admin_username: admin
    admin_password: "bootstrap-pass"

lighting:
  config_storage: versioned
`, dbPath, port)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SMARTLIGHT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want a config loading error", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SMARTLIGHT_CONFIG", writeTestConfig(t, dir, freePort(t), ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	port := freePort(t)
	t.Setenv("SMARTLIGHT_CONFIG", writeTestConfig(t, dir, port, filepath.Join(dir, "smartlight.db")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	var (
		resp *http.Response
		err  error
	)
	for deadline := time.Now().Add(10 * time.Second); time.Now().Before(deadline); {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never became reachable: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}

	login := fmt.Sprintf("http://127.0.0.1:%d/api/auth/login", port)
	resp, err = http.Post(login, "application/json",
		strings.NewReader(`{"username":"admin","password":"bootstrap-pass"}`))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login with bootstrap admin status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on shutdown", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("SMARTLIGHT_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("SMARTLIGHT_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	brokerDown := errors.New("broker down")

	tests := []struct {
		name    string
		checks  map[string]api.HealthChecker
		wantErr string
	}{
		{
			name:   "database only",
			checks: map[string]api.HealthChecker{"database": stubCheck{}},
		},
		{
			name: "all healthy",
			checks: map[string]api.HealthChecker{
				"database": stubCheck{},
				"mqtt":     stubCheck{},
				"influxdb": stubCheck{},
			},
		},
		{
			name: "mqtt failing",
			checks: map[string]api.HealthChecker{
				"database": stubCheck{},
				"mqtt":     stubCheck{err: brokerDown},
			},
			wantErr: "mqtt: broker down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := healthCheck(context.Background(), tt.checks)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("healthCheck() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("healthCheck() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
