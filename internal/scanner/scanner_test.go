package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyt/sine/internal/scanner/scannertest"
)

const document = "rules:\n  - id: arch-010-impl\n    pattern: eval($X)\n"

func TestCommand(t *testing.T) {
	e := New("", []string{"--timeout", "10"}, nil)
	assert.Equal(t,
		[]string{"semgrep", "--config", "/tmp/x/semgrep.yaml", "--json", "--metrics=off", "--timeout", "10", "src", "lib"},
		e.Command("/tmp/x/semgrep.yaml", []string{"src", "lib"}),
	)
}

func TestExecuteExitCodes(t *testing.T) {
	for _, code := range []int{0, 1, 2} {
		t.Run(string(rune('0'+code)), func(t *testing.T) {
			stdout := `{"results":[],"errors":[]}`
			engine := scannertest.Start(t, scannertest.Options{Stdout: stdout, Stderr: "progress", ExitCode: code})

			x, err := New(engine.Binary, nil, hclog.NewNullLogger()).Execute(context.Background(), []byte(document), []string{"src"}, false)
			require.NoError(t, err)
			assert.Equal(t, code, x.ExitCode)
			assert.Equal(t, stdout, string(x.Stdout))
			assert.Equal(t, "progress", string(x.Stderr))
			assert.Equal(t, document, engine.Config())
			assert.Equal(t, 1, engine.Calls())
		})
	}
}

func TestExecutePassesArguments(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Stdout: "{}"})

	x, err := New(engine.Binary, []string{"--quiet"}, nil).Execute(context.Background(), []byte(document), []string{"a.py", "pkg"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"--config", x.ConfigPath, "--json", "--metrics=off", "--quiet", "a.py", "pkg"}, engine.Args())
	assert.Equal(t, ConfigFileName, filepath.Base(engine.ConfigPath()))
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(x.ConfigPath)), "sine-"))
}

func TestExecuteRemovesTempDir(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Stdout: "{}", Stderr: "fatal: boom", ExitCode: 3})

	x, err := New(engine.Binary, nil, nil).Execute(context.Background(), []byte(document), []string{"."}, false)
	require.Error(t, err)
	assert.Nil(t, x)

	_, statErr := os.Stat(filepath.Dir(engine.ConfigPath()))
	assert.True(t, os.IsNotExist(statErr), "temporary directory should be removed")
}

func TestExecuteUnexpectedExitCode(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Stdout: "{}", Stderr: "fatal: boom\n", ExitCode: 7})

	_, err := New(engine.Binary, nil, nil).Execute(context.Background(), []byte(document), []string{"."}, false)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 7, execErr.ExitCode)
	assert.Equal(t, "fatal: boom\n", execErr.Stderr)
	assert.Contains(t, err.Error(), "code 7")
}

func TestExecuteEngineNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-semgrep")

	_, err := New(missing, nil, nil).Execute(context.Background(), []byte(document), []string{"."}, false)
	assert.True(t, errors.Is(err, ErrEngineNotFound), "got %v", err)

	_, err = New("sine-definitely-not-installed", nil, nil).Execute(context.Background(), []byte(document), []string{"."}, false)
	assert.True(t, errors.Is(err, ErrEngineNotFound), "got %v", err)
}

func TestExecuteCancelled(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Stdout: "{}", Hang: true})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	x, err := New(engine.Binary, nil, nil).Execute(ctx, []byte(document), []string{"."}, false)
	require.Error(t, err)
	assert.Nil(t, x)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)

	_, statErr := os.Stat(filepath.Dir(engine.ConfigPath()))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteDryRun(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Stdout: "{}"})

	x, err := New(engine.Binary, nil, nil).Execute(context.Background(), []byte(document), []string{"src"}, true)
	require.NoError(t, err)
	assert.True(t, x.DryRun)
	assert.Equal(t, 0, engine.Calls())
	assert.Equal(t, ConfigFileName, filepath.Base(x.ConfigPath))

	preview := RenderDryRun(x)
	lines := strings.Split(preview, "\n")
	assert.Equal(t, DryRunHeader, lines[0])
	assert.Equal(t, "Would write to: "+x.ConfigPath, lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "rules:", lines[3])
	assert.Equal(t, "Would execute:", lines[len(lines)-2])
	assert.Equal(t, "  "+engine.Binary+" --config "+x.ConfigPath+" --json --metrics=off src", lines[len(lines)-1])
}

func TestVersion(t *testing.T) {
	engine := scannertest.Start(t, scannertest.Options{Version: "1.99.0"})

	v, err := New(engine.Binary, nil, nil).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.99.0", v)

	_, err = New(filepath.Join(t.TempDir(), "missing"), nil, nil).Version(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotFound)
}
