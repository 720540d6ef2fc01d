//go:build e2e

package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var gardenBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "garden-e2e-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}
	defer os.RemoveAll(tmp)

	gardenBin = filepath.Join(tmp, "garden")
	build := exec.Command("go", "build", "-ldflags", "-X github.com/msalah0e/garden/cmd.version=0.3.0-test", "-o", gardenBin, ".")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		panic("failed to build garden: " + err.Error())
	}

	os.Exit(m.Run())
}

// runGarden executes the garden binary against an isolated HOME and data file.
func runGarden(t *testing.T, home string, args ...string) (stdout string, exitCode int) {
	t.Helper()
	args = append([]string{"--data", filepath.Join(home, "graph.json")}, args...)
	cmd := exec.Command(gardenBin, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"NO_COLOR=1",
	)

	var outBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &outBuf

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run garden %v: %v", args, err)
		}
	}
	return outBuf.String(), exitCode
}

func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()
	out, code := runGarden(t, home, args...)
	if code != 0 {
		t.Fatalf("garden %v exited %d:\n%s", args, code, out)
	}
	return out
}

func TestE2E_Version(t *testing.T) {
	out := mustRun(t, t.TempDir(), "--version")
	if !strings.Contains(out, "0.3.0-test") {
		t.Errorf("expected version output to contain '0.3.0-test', got %q", out)
	}
}

func TestE2E_EmptyGraph(t *testing.T) {
	out := mustRun(t, t.TempDir())
	if !strings.Contains(out, "Empty graph") {
		t.Errorf("expected empty graph hint, got %q", out)
	}
}

func TestE2E_EditGraph(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "add", "Ada Lovelace", "--type", "person", "--prop", "born=1815")
	mustRun(t, home, "add", "Analytical Engine", "--type", "project")
	mustRun(t, home, "relate", "Ada Lovelace", "works on", "Analytical Engine")

	out := mustRun(t, home, "show", "ada lovelace")
	if !strings.Contains(out, "Analytical Engine") || !strings.Contains(out, "1815") {
		t.Errorf("show missing details:\n%s", out)
	}

	if _, code := runGarden(t, home, "add", "ada lovelace"); code == 0 {
		t.Error("duplicate add should fail")
	}

	mustRun(t, home, "unrelate", "Ada Lovelace", "works on", "Analytical Engine")
	mustRun(t, home, "remove", "Analytical Engine")

	out = mustRun(t, home, "list", "--json")
	var listed []map[string]any
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("list --json: %v\n%s", err, out)
	}
	if len(listed) != 1 {
		t.Errorf("expected 1 entity left, got %d", len(listed))
	}
}

func TestE2E_DemoLayoutExport(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "demo")

	out := mustRun(t, home, "layout", "--seed", "7", "--json")
	var result struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("layout --json: %v\n%s", err, out)
	}
	if len(result.Nodes) == 0 {
		t.Error("expected placed nodes")
	}

	dot := mustRun(t, home, "export", "--format", "dot")
	if !strings.Contains(dot, "digraph") {
		t.Errorf("expected DOT output, got %q", dot)
	}

	svgPath := filepath.Join(home, "graph.svg")
	mustRun(t, home, "export", "--format", "svg", "--seed", "7", "-o", svgPath)
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("reading svg: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("expected an svg document")
	}

	if _, code := runGarden(t, home, "demo"); code == 0 {
		t.Error("demo over a non-empty graph should need --force")
	}
}

func TestE2E_Doctor(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "demo")
	out := mustRun(t, home, "doctor")
	if !strings.Contains(out, "layout settles") && !strings.Contains(out, "layout still moving") {
		t.Errorf("doctor output missing layout check:\n%s", out)
	}
}
