// Package scannertest provides a scripted stand-in for the semgrep binary.
package scannertest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Options controls what the fake engine prints and how it exits.
type Options struct {
	// Stdout is printed verbatim unless Match is set.
	Stdout   string
	Stderr   string
	ExitCode int

	// Match turns the engine into a line matcher: every line of a target
	// file containing Match is reported as a result of CheckID.
	Match   string
	CheckID string
	Message string

	// Hang makes the engine block until it is killed.
	Hang bool

	Version string
}

// Engine is a fake semgrep installed in a test temp dir.
type Engine struct {
	Binary string
	dir    string
}

const script = `#!/bin/sh
dir='%[1]s'
echo call >> "$dir/calls"
if [ "$1" = "--version" ]; then
  cat "$dir/version"
  exit 0
fi
printf '%%s\n' "$@" > "$dir/argv"
targets=""
while [ $# -gt 0 ]; do
  case "$1" in
    --config) cp "$2" "$dir/config.yaml"; printf '%%s' "$2" > "$dir/config_path"; shift ;;
    --*) ;;
    *) targets="$targets $1" ;;
  esac
  shift
done
cat "$dir/stderr" >&2
if [ -s "$dir/match" ]; then
  printf '{"results":['
  awk -v m="$(cat "$dir/match")" -v id="$(cat "$dir/check_id")" -v msg="$(cat "$dir/message")" \
    'index($0, m) { if (n++) printf ","; printf "{\"check_id\":\"%%s\",\"path\":\"%%s\",\"start\":{\"line\":%%d,\"col\":1},\"extra\":{\"message\":\"%%s\",\"lines\":\"%%s\"}}", id, FILENAME, FNR, msg, m }' $targets
  printf '],"errors":[]}'
else
  cat "$dir/stdout"
fi
%[2]s
exit %[3]d
`

// Start writes the fake engine and returns it.
func Start(t testing.TB, opts Options) *Engine {
	t.Helper()
	dir := t.TempDir()

	version := opts.Version
	if version == "" {
		version = "1.50.0"
	}
	message := opts.Message
	if message == "" {
		message = "matched"
	}
	writeFile(t, filepath.Join(dir, "stdout"), opts.Stdout)
	writeFile(t, filepath.Join(dir, "stderr"), opts.Stderr)
	writeFile(t, filepath.Join(dir, "match"), opts.Match)
	writeFile(t, filepath.Join(dir, "check_id"), opts.CheckID)
	writeFile(t, filepath.Join(dir, "message"), message)
	writeFile(t, filepath.Join(dir, "version"), version+"\n")

	hang := ""
	if opts.Hang {
		hang = "exec sleep 30"
	}
	binary := filepath.Join(dir, "semgrep")
	if err := os.WriteFile(binary, []byte(fmt.Sprintf(script, dir, hang, opts.ExitCode)), 0o755); err != nil {
		t.Fatalf("failed to write fake engine: %v", err)
	}
	return &Engine{Binary: binary, dir: dir}
}

// Args returns the arguments of the last scan invocation.
func (e *Engine) Args() []string {
	data, err := os.ReadFile(filepath.Join(e.dir, "argv"))
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// Config returns the rule file the engine was given on its last run.
func (e *Engine) Config() string {
	data, _ := os.ReadFile(filepath.Join(e.dir, "config.yaml"))
	return string(data)
}

// ConfigPath returns the --config argument of the last run.
func (e *Engine) ConfigPath() string {
	data, _ := os.ReadFile(filepath.Join(e.dir, "config_path"))
	return string(data)
}

// Calls returns how many times the engine was started.
func (e *Engine) Calls() int {
	data, err := os.ReadFile(filepath.Join(e.dir, "calls"))
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "call\n")
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
