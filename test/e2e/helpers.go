//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/semantrics/internal/collector"
	"github.com/cloo-solutions/semantrics/internal/pagination"
)

const interfaceKey = "e2e-key"

// npmsFixture is served for every query the fake provider receives.
const npmsFixture = `{
  "results": [
    {"package": {"name": "react", "version": "18.2.0", "description": "React is a JavaScript library for building user interfaces.", "links": {"npm": "https://www.npmjs.com/package/react"}}},
    {"package": {"name": "react-dom", "version": "18.2.0", "description": "React package for working with the DOM.", "links": {"npm": "https://www.npmjs.com/package/react-dom"}}},
    {"package": {"name": "react-router", "version": "6.22.0", "description": "Declarative routing for React", "links": {"npm": "https://www.npmjs.com/package/react-router"}}}
  ]
}`

// E2ETestEnv holds the binaries, the fake provider and a running collector.
type E2ETestEnv struct {
	T            *testing.T
	BinaryDir    string
	ProviderURL  string
	CollectorURL string
	HTTPClient   *http.Client

	provider  *httptest.Server
	collector *exec.Cmd
}

// SetupE2EEnv builds both binaries and starts the collector.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	env := &E2ETestEnv{
		T:          t,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	env.BuildBinaries()

	env.provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(npmsFixture))
	}))
	env.ProviderURL = env.provider.URL

	env.startCollector()
	return env
}

// Cleanup stops the collector and removes the binaries.
func (e *E2ETestEnv) Cleanup() {
	if e.collector != nil && e.collector.Process != nil {
		_ = e.collector.Process.Signal(os.Interrupt)
		_, _ = e.collector.Process.Wait()
	}
	if e.provider != nil {
		e.provider.Close()
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles semantrics and semantricsd into a temp dir.
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "semantrics-e2e-*")
	require.NoError(e.T, err)
	e.BinaryDir = tmpDir

	for _, name := range []string{"semantrics", "semantricsd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		output, err := cmd.CombinedOutput()
		require.NoError(e.T, err, "failed to build %s: %s", name, output)
	}
}

func (e *E2ETestEnv) startCollector() {
	port := freePort(e.T)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	cmd := exec.Command(filepath.Join(e.BinaryDir, "semantricsd"), "serve",
		"--addr", addr,
		"--interface-key", interfaceKey,
	)
	cmd.Env = append(os.Environ(), "SEMANTRICS_LOG_LEVEL=warn")
	require.NoError(e.T, cmd.Start())
	e.collector = cmd
	e.CollectorURL = "http://" + addr

	waitForServer(e.T, e.CollectorURL+"/health", 10*time.Second)
}

// RunSemantrics runs the client binary against the fake provider and the
// collector.
func (e *E2ETestEnv) RunSemantrics(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "semantrics"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = append(os.Environ(),
		"SEMANTRICS_INTERFACE_KEY="+interfaceKey,
		"SEMANTRICS_COLLECTOR_URL="+e.CollectorURL,
		"SEMANTRICS_PROVIDER=npms",
		"SEMANTRICS_PROVIDER_URL="+e.ProviderURL,
		"SEMANTRICS_LOG_FILE=-",
		"SEMANTRICS_LOG_LEVEL=error",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String() + stderr.String(), err
	}
	return stdout.String(), nil
}

// Events fetches stored events from the collector.
func (e *E2ETestEnv) Events(query string) []collector.Received {
	resp, err := e.HTTPClient.Get(e.CollectorURL + "/events?" + query)
	require.NoError(e.T, err)
	defer resp.Body.Close()
	require.Equal(e.T, http.StatusOK, resp.StatusCode)

	var body struct {
		Data pagination.Page[collector.Received] `json:"data"`
	}
	require.NoError(e.T, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data.Items
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		select {
		case <-ctx.Done():
			t.Fatalf("server at %s did not become ready", url)
		case <-time.After(50 * time.Millisecond):
		}
	}
}
