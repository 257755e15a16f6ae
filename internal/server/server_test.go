package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cbr4l0k/Scoop/internal/config"
	"github.com/cbr4l0k/Scoop/internal/exec"
	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/runner"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-api-key-0123456789"

func fakeRun(ctx context.Context, name string, args []string, opts *exec.Options) *exec.Result {
	switch name {
	case "katana":
		return &exec.Result{Stdout: []byte("https://example.com/\nhttps://example.com/login\n")}
	case "subfinder":
		return &exec.Result{Stderr: "no resolvers", ExitCode: 1, Error: errors.New("exit status 1")}
	case "waybackurls":
		return &exec.Result{NotFound: true, ExitCode: -1, Error: errors.New("executable file not found")}
	case "dirsearch":
		return &exec.Result{TimedOut: true, ExitCode: -1, Error: errors.New("signal: killed")}
	}
	return &exec.Result{}
}

func newTestServer(t *testing.T) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	hist, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	r := runner.New(config.DefaultConfig(),
		runner.WithOutput(io.Discard),
		runner.WithHistory(hist),
		runner.WithInvokerRunner(invoker.RunnerFunc(fakeRun)),
	)
	cfg := DefaultConfig()
	cfg.APIKey = testKey
	cfg.Log = io.Discard
	cfg.LookPath = func(bin string) (string, error) {
		if bin == "katana" || bin == "nuclei" {
			return "/usr/bin/" + bin, nil
		}
		return "", errors.New("not found")
	}
	return New(cfg, r, hist), hist
}

func do(t *testing.T, s *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("X-API-Key", testKey)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPublicEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = do(t, s, http.MethodGet, "/api/v1/version", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/tools", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/tools", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tools []ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tools, len(invoker.Kinds()))

	byKind := map[string]ToolInfo{}
	for _, ti := range body.Tools {
		byKind[ti.Kind] = ti
	}
	assert.True(t, byKind["katana-crawl"].Installed)
	assert.True(t, byKind["katana-crawl"].Implemented)
	assert.Equal(t, "urls", byKind["dirsearch-bruteforce"].Output)
	assert.False(t, byKind["naabu-portscan"].Implemented)
	assert.Equal(t, "httpx-pd", byKind["httpx-probe"].Binary)
	assert.False(t, byKind["httpx-probe"].Installed)
}

func TestCreateInvocation(t *testing.T) {
	s, hist := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/invocations", `{"tool":"katana","target":"https://example.com"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		ID     string         `json:"id"`
		Result invoker.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"https://example.com/", "https://example.com/login"}, body.Result.Lines)
	assert.Equal(t, []string{"-u", "https://example.com"}, body.Result.Invocation.Args)

	rec, err := hist.GetInvocation(context.Background(), body.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, rec.Status)

	w = do(t, s, http.MethodGet, "/api/v1/invocations/"+body.ID, "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodGet, "/api/v1/invocations/nope", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateInvocation_ErrorStatus(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		errSub string
	}{
		{"missing fields", `{"tool":"katana"}`, http.StatusBadRequest, ""},
		{"unknown tool", `{"tool":"sqlmap","target":"https://example.com"}`, http.StatusBadRequest, "unknown tool"},
		{"invalid target", `{"tool":"katana","target":"not a url","validate":true}`, http.StatusBadRequest, "invalid target"},
		{"flag target", `{"tool":"katana","target":"-o/tmp/x"}`, http.StatusBadRequest, "invalid target"},
		{"not implemented", `{"tool":"naabu-portscan","target":"example.com"}`, http.StatusNotImplemented, "not implemented"},
		{"not found", `{"tool":"waybackurls","target":"https://example.com"}`, http.StatusFailedDependency, "tool not found"},
		{"exec failed", `{"tool":"subfinder","target":"example.com"}`, http.StatusBadGateway, "no resolvers"},
		{"timeout", `{"tool":"dirsearch","target":"https://example.com"}`, http.StatusGatewayTimeout, "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/invocations", tt.body, true)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.errSub != "" {
				assert.Contains(t, w.Body.String(), tt.errSub)
			}
		})
	}
}

func TestListInvocations(t *testing.T) {
	s, _ := newTestServer(t)

	for _, body := range []string{
		`{"tool":"katana","target":"https://a.example.com"}`,
		`{"tool":"katana","target":"https://b.example.com"}`,
		`{"tool":"subfinder","target":"example.com"}`,
	} {
		do(t, s, http.MethodPost, "/api/v1/invocations", body, true)
	}

	var body struct {
		Invocations []storage.InvocationRecord `json:"invocations"`
	}

	w := do(t, s, http.MethodGet, "/api/v1/invocations?tool=katana", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Invocations, 2)

	w = do(t, s, http.MethodGet, "/api/v1/invocations?limit=1", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Invocations, 1)

	w = do(t, s, http.MethodGet, "/api/v1/invocations?limit=zero", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvocationResultFile(t *testing.T) {
	hist, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })
	dir := t.TempDir()

	r := runner.New(config.DefaultConfig(),
		runner.WithOutput(io.Discard),
		runner.WithHistory(hist),
		runner.WithResultFiles(dir),
		runner.WithInvokerRunner(invoker.RunnerFunc(fakeRun)),
	)
	cfg := DefaultConfig()
	cfg.APIKey = testKey
	cfg.Log = io.Discard
	cfg.ResultsDir = dir
	s := New(cfg, r, hist)

	w := do(t, s, http.MethodPost, "/api/v1/invocations", `{"tool":"katana","target":"https://example.com"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, s, http.MethodGet, "/api/v1/invocations/"+created.ID+"/result", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var file storage.ResultFile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file))
	assert.Equal(t, created.ID, file.Meta.ID)
	assert.Equal(t, "katana -u https://example.com", file.Meta.Command)

	w = do(t, s, http.MethodGet, "/api/v1/invocations/nope/result", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvocationResultFile_Disabled(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/invocations/anything/result", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
}

func TestInvocationLimiter(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < cap(s.slots); i++ {
		s.slots <- struct{}{}
	}

	w := do(t, s, http.MethodPost, "/api/v1/invocations", `{"tool":"katana","target":"https://example.com"}`, true)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	<-s.slots
	w = do(t, s, http.MethodPost, "/api/v1/invocations", `{"tool":"katana","target":"https://example.com"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.slots, cap(s.slots)-1)
}

func TestRequestLogger(t *testing.T) {
	s, _ := newTestServer(t)
	var buf bytes.Buffer
	s.log = &buf

	do(t, s, http.MethodGet, "/api/v1/version", "", false)
	do(t, s, http.MethodGet, "/health", "", false)
	assert.Contains(t, buf.String(), "/api/v1/version")
	assert.NotContains(t, buf.String(), "/health")
}

func TestGenerateAPIKey(t *testing.T) {
	k := GenerateAPIKey()
	assert.Len(t, k, 64)
	assert.NotEqual(t, k, GenerateAPIKey())
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
