package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir(""); _ = SetLevel("info") })
	return tmp
}

func readDiag(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("FLUENT_LOG_PATH", "/tmp/fluent-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/fluent-env-log" {
		t.Errorf("got %q, want /tmp/fluent-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("FLUENT_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "fluent") {
		t.Errorf("expected default directory under fluent, got %q", got)
	}
}

func TestInitCreatesFile(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "diagnostics_log.txt")); err != nil {
		t.Errorf("diagnostics_log.txt not created: %v", err)
	}
}

func TestRequestMetrics(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Request(RequestMetrics{Op: "analyze", Model: "m1", Status: 200, ConnReused: true, TotalTimeMs: 12.5})

	got := readDiag(t, tmp)
	for _, want := range []string{"request", "op=analyze", "model=m1", "conn=reused", "status=200"} {
		if !strings.Contains(got, want) {
			t.Errorf("log missing %q, got: %q", want, got)
		}
	}
}

func TestAnalysisOmitsText(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Analysis(2, 480, "")
	Analysis(3, 0, "NETWORK_FAILURE")

	got := readDiag(t, tmp)
	if !strings.Contains(got, "chars=480") {
		t.Errorf("expected chars field, got: %q", got)
	}
	if !strings.Contains(got, "error_kind=NETWORK_FAILURE") {
		t.Errorf("expected error kind, got: %q", got)
	}
}

func TestSetLevelFilters(t *testing.T) {
	tmp := setupLogDir(t)
	if err := SetLevel("warn"); err != nil {
		t.Fatal(err)
	}
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Info("hidden-line")
	Warn("shown-line")

	got := readDiag(t, tmp)
	if strings.Contains(got, "hidden-line") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(got, "shown-line") {
		t.Error("warn line missing")
	}
}

func TestSetLevelInvalid(t *testing.T) {
	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
