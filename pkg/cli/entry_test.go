package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/diagnostics"
)

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.infra")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Entry(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunFile(t *testing.T) {
	path := writeScript(t, "print(1 + 2)")
	code, stdout, stderr := runCLI(t, path)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if stdout != "3\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunFileWithVM(t *testing.T) {
	path := writeScript(t, "print(1 + 2)")
	code, stdout, _ := runCLI(t, "--vm", path)
	if code != 0 || stdout != "3\n" {
		t.Errorf("exit = %d, stdout = %q", code, stdout)
	}
}

func TestRuntimeErrorExitCode(t *testing.T) {
	path := writeScript(t, "1 / 0")
	code, _, stderr := runCLI(t, path)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Division by zero") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "main.infra:1:") {
		t.Errorf("stderr missing file position: %q", stderr)
	}
	if !strings.Contains(stderr, "[R001]") {
		t.Errorf("stderr missing stage code: %q", stderr)
	}
}

func TestTypeWarningDoesNotFail(t *testing.T) {
	path := writeScript(t, "let x: number = \"s\"\nprint(\"ok\")")
	code, stdout, stderr := runCLI(t, path)
	if code != 0 {
		t.Errorf("exit = %d, warnings must not fail the run", code)
	}
	if stdout != "ok\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "warning") || !strings.Contains(stderr, diagnostics.ErrT001) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestStrictTypesFailTheRun(t *testing.T) {
	path := writeScript(t, "let x: number = \"s\"\nprint(\"ok\")")
	code, stdout, _ := runCLI(t, "--strict-types", path)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, strict run must not execute", stdout)
	}
}

func TestNoTypecheckSilencesWarnings(t *testing.T) {
	path := writeScript(t, "let x: number = \"s\"")
	code, _, stderr := runCLI(t, "--no-typecheck", path)
	if code != 0 || stderr != "" {
		t.Errorf("exit = %d, stderr = %q", code, stderr)
	}
}

func TestDisasmPrintsListing(t *testing.T) {
	path := writeScript(t, "print(1 + 2)")
	code, stdout, _ := runCLI(t, "--disasm", path)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, "== script ==") || !strings.Contains(stdout, "3\n") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestVersionFlag(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	if code != 0 || !strings.Contains(stdout, "infra") {
		t.Errorf("exit = %d, stdout = %q", code, stdout)
	}
}

func TestMissingFile(t *testing.T) {
	code, _, stderr := runCLI(t, filepath.Join(t.TempDir(), "absent.infra"))
	if code != 1 || stderr == "" {
		t.Errorf("exit = %d, stderr = %q", code, stderr)
	}
}

func TestNoArgsShowsUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Usage") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestReplKeepsState(t *testing.T) {
	var stdout, stderr bytes.Buffer
	input := strings.NewReader("let x = 40\nx + 2\nexit\n")
	code := Entry([]string{"--repl"}, input, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout.String(), "42") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestReplRecoversFromErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	input := strings.NewReader("1 / 0\nprint(\"still here\")\nexit\n")
	code := Entry([]string{"--repl", "--vm"}, input, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stderr.String(), "Division by zero") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "still here") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestModuleImportsResolveBesideScript(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.infra")
	if err := os.WriteFile(lib, []byte("export let seven = 7"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.infra")
	if err := os.WriteFile(main, []byte("from lib import seven\nprint(seven)"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, main)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if stdout != "7\n" {
		t.Errorf("stdout = %q", stdout)
	}
}
