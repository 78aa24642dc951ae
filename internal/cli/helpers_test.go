package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/config"
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/state"
	"github.com/roach88/continual-learning/internal/testutil"
)

// testNow is the fake wall clock used by CLI tests.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type cliEnv struct {
	workDir string
	env     map[string]string
	clock   *testutil.FakeClock
	runIDs  *testutil.SequentialRunIDGenerator
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		workDir: t.TempDir(),
		env:     map[string]string{},
		clock:   testutil.NewFakeClock(testNow),
		runIDs:  testutil.NewSequentialRunIDGenerator("cli"),
	}
}

func (e *cliEnv) options() *RootOptions {
	env := e.env
	return &RootOptions{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		Clock:  e.clock,
		RunIDs: e.runIDs,
	}
}

// run executes the CLI with --workdir appended to args.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{}, args...)
	full = append(full, "--workdir", e.workDir)
	code = execute(e.options(), full, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (e *cliEnv) store() *state.FileStore {
	return state.NewFileStore(state.PathFor(e.workDir), nil)
}

func (e *cliEnv) seed(t *testing.T, st ir.EngineState) {
	t.Helper()
	require.NoError(t, e.store().Save(context.Background(), st))
}

func (e *cliEnv) load() ir.EngineState {
	return e.store().Load(context.Background())
}

// transcript creates a transcript file with the given mtime and returns its
// path.
func (e *cliEnv) transcript(t *testing.T, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(e.workDir, "transcripts", "t.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func (e *cliEnv) writeConfig(t *testing.T, src string) {
	t.Helper()
	path := filepath.Join(e.workDir, config.ConfigFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func stopEvent(gen, transcript string) string {
	return `{"conversation_id":"c1","generation_id":"` + gen +
		`","status":"completed","loop_count":0,"transcript_path":"` + transcript + `"}`
}
