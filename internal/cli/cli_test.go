package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbr4l0k/Scoop/internal/exec"
	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTools(ctx context.Context, name string, args []string, opts *exec.Options) *exec.Result {
	switch name {
	case "subfinder":
		if args[1] == "broken.example.com" {
			return &exec.Result{Stderr: "no sources", ExitCode: 1, Error: errors.New("exit status 1")}
		}
		return &exec.Result{Stdout: []byte("a." + args[1] + "\nb." + args[1] + "\n")}
	case "katana":
		return &exec.Result{Stdout: []byte("https://example.com/\nhttps://example.com/about\n")}
	case "httpx-pd":
		return &exec.Result{Stdout: []byte("https://example.com [200] [Example Domain]")}
	}
	return &exec.Result{NotFound: true, Error: errors.New("not found")}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfgFile, debugMode = "", false
	scanTarget, scanList, scanValidate, scanTimeout, scanJSON, scanSave, scanOutput = "", "", false, 0, false, false, ""
	historyTool, historyTarget, historyLimit, historyStats, historyPrune = "", "", 20, false, 0
	configForce = false
	invokerRunner = invoker.RunnerFunc(fakeTools)
	t.Cleanup(func() { invokerRunner = nil })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := Execute(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestScanList(t *testing.T) {
	out, _, err := runCLI(t, "scan", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "katana-crawl")
	assert.Contains(t, out, "subfinder-enumerate")
	assert.Contains(t, out, "not implemented")
}

func TestScan_PrintsLinesAndRecordsHistory(t *testing.T) {
	out, stderr, err := runCLI(t, "scan", "subfinder", "-t", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\nb.example.com\n", out)
	assert.Contains(t, stderr, "finding subdomains for example.com with subfinder")

	// Same HOME within one test, so the history database is shared
	home := os.Getenv("HOME")
	_, err = os.Stat(filepath.Join(home, ".scoop", "scoop.db"))
	require.NoError(t, err)
}

func TestScan_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "subs.txt")
	_, stderr, err := runCLI(t, "scan", "subfinder", "-t", "example.com", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Wrote 2 line(s)")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\nb.example.com\n", string(raw))
}

func TestScan_Text(t *testing.T) {
	out, _, err := runCLI(t, "scan", "httpx-probe", "-t", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com [200] [Example Domain]\n", out)
}

func TestScan_JSON(t *testing.T) {
	out, _, err := runCLI(t, "scan", "katana-crawl", "-t", "https://example.com", "--json")
	require.NoError(t, err)

	var got jsonOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://example.com", got.Target)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about"}, got.Result.Lines)
	assert.NotEmpty(t, got.ID)
}

func TestScan_ListFile(t *testing.T) {
	list := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(list, []byte("one.example.com\n# skip\nbroken.example.com\ntwo.example.com\n"), 0644))

	out, stderr, err := runCLI(t, "scan", "subfinder-enumerate", "-l", list)
	require.Error(t, err)
	assert.ErrorIs(t, err, invoker.ErrToolExecutionFailed)
	assert.Contains(t, err.Error(), "1 of 3 targets failed")
	assert.Contains(t, stderr, "no sources")
	assert.Equal(t, "a.one.example.com\nb.one.example.com\na.two.example.com\nb.two.example.com\n", out)
}

func TestScan_Errors(t *testing.T) {
	_, _, err := runCLI(t, "scan", "katana")
	assert.ErrorContains(t, err, "either --target or --list is required")

	_, _, err = runCLI(t, "scan", "sqlmap", "-t", "https://example.com")
	assert.ErrorIs(t, err, invoker.ErrUnknownTool)

	_, _, err = runCLI(t, "scan", "naabu-portscan", "-t", "example.com")
	assert.ErrorIs(t, err, invoker.ErrNotImplemented)

	_, _, err = runCLI(t, "scan", "katana", "-t", "example.com", "--validate")
	assert.ErrorIs(t, err, invoker.ErrInvalidTarget)

	_, _, err = runCLI(t, "scan", "waybackurls", "-t", "https://example.com")
	assert.ErrorIs(t, err, invoker.ErrToolNotFound)
}

func TestHistory(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path: "+filepath.Join(home, "h.db")+"\nsave_history: true\n"), 0644))

	_, _, err := runCLI(t, "--config", cfgPath, "scan", "subfinder", "-t", "example.com")
	require.NoError(t, err)
	_, _, err = runCLI(t, "--config", cfgPath, "scan", "katana", "-t", "https://example.com")
	require.NoError(t, err)

	out, _, err := runCLI(t, "--config", cfgPath, "history", "--tool", "subfinder")
	require.NoError(t, err)
	assert.Contains(t, out, "subfinder-enumerate")
	assert.NotContains(t, out, "katana-crawl")

	out, _, err = runCLI(t, "--config", cfgPath, "history", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "katana-crawl")
	assert.Contains(t, out, "subfinder-enumerate")
}

func TestHistoryShow(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"db_path: "+filepath.Join(home, "h.db")+"\noutput_dir: "+filepath.Join(home, "results")+"\n"), 0644))

	out, _, err := runCLI(t, "--config", cfgPath, "scan", "katana", "-t", "https://example.com", "--save", "--json")
	require.NoError(t, err)
	var got jsonOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	out, _, err = runCLI(t, "--config", cfgPath, "history", "show", got.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Target:   https://example.com")
	assert.Contains(t, out, `"command": "katana -u https://example.com"`)

	_, _, err = runCLI(t, "--config", cfgPath, "history", "show", "missing-id")
	assert.ErrorContains(t, err, "no invocation with id missing-id")
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "scoop", "config.yaml")

	out, _, err := runCLI(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	_, err = os.Stat(cfgPath)
	require.NoError(t, err)

	out, _, err = runCLI(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	t.Setenv("SCOOP_API_KEY", "super-secret")
	out, _, err = runCLI(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 8899")
	assert.NotContains(t, out, "super-secret")
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scoop version")
}
