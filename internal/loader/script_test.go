package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tackhq/tackd/internal/classpath"
)

func classDir(t *testing.T, files map[string]string) classpath.Spec {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return classpath.Spec{dir}
}

func load(t *testing.T, l *ScriptLoader, cp classpath.Spec) EntryPoint {
	t.Helper()
	ep, err := l.Load(context.Background(), cp, BuildID(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })
	return ep
}

func run(t *testing.T, ep EntryPoint, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code, err := ep.Run(context.Background(), Stdio{Stdout: &stdout, Stderr: &stderr}, args)
	require.NoError(t, err)
	return code, stdout.String(), stderr.String()
}

func TestScriptArgumentVector(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": `main() { printf '%d' "$#"; for a in "$@"; do printf '[%s]' "$a"; done; }`,
	})
	ep := load(t, &ScriptLoader{}, cp)

	code, stdout, _ := run(t, ep, "a", "b c", "")
	assert.Equal(t, 0, code)
	assert.Equal(t, "3[a][b c][]", stdout)

	_, stdout, _ = run(t, ep, "-v", "--flag=x")
	assert.Equal(t, "2[-v][--flag=x]", stdout)
}

func TestScriptExitIsIntercepted(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": `main() { echo before; exit 7; echo after; }`,
	})
	ep := load(t, &ScriptLoader{}, cp)

	code, stdout, _ := run(t, ep)
	assert.Equal(t, 7, code)
	assert.Equal(t, "before\n", stdout)

	// The entry point survives and can run again.
	code, _, _ = run(t, ep)
	assert.Equal(t, 7, code)
}

func TestScriptReturnStatus(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": `main() { echo oops >&2; return 3; }`,
	})
	ep := load(t, &ScriptLoader{}, cp)

	code, stdout, stderr := run(t, ep)
	assert.Equal(t, 3, code)
	assert.Empty(t, stdout)
	assert.Equal(t, "oops\n", stderr)
}

func TestScriptDottedMainClass(t *testing.T) {
	cp := classDir(t, map[string]string{
		"com/example/Compiler.sh": `main() { printf compiled; }`,
	})
	ep := load(t, &ScriptLoader{MainClass: "com.example.Compiler"}, cp)

	_, stdout, _ := run(t, ep)
	assert.Equal(t, "compiled", stdout)
}

func TestScriptEntryPointNotFound(t *testing.T) {
	cp := classDir(t, map[string]string{"Main.sh": `helper() { :; }`})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))

	var notFound *EntryPointNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Main", notFound.Class)
	assert.ErrorIs(t, err, ErrEntryPoint)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestScriptNestedMainDoesNotCount(t *testing.T) {
	cp := classDir(t, map[string]string{"Main.sh": `outer() { main() { :; }; }`})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))

	var notFound *EntryPointNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestScriptAmbiguousEntryPoint(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": "main() { echo one; }\nmain() { echo two; }\n",
	})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))

	var ambiguous *AmbiguousEntryPointError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Count)
	assert.True(t, errdefs.IsConflict(err))
}

func TestScriptMainClassMissing(t *testing.T) {
	cp := classDir(t, map[string]string{"Other.sh": `main() { :; }`})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))
	assert.ErrorIs(t, err, classpath.ErrResolution)
}

func TestScriptMalformedClass(t *testing.T) {
	cp := classDir(t, map[string]string{"Main.sh": `main() { if; }`})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))
	assert.ErrorIs(t, err, classpath.ErrResolution)
}

func TestScriptInitializerFailure(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": "echo initializing\nmain() { :; }\nfalse\n",
	})

	_, err := (&ScriptLoader{}).Load(context.Background(), cp, BuildID(t.TempDir()))
	require.ErrorIs(t, err, ErrInitializer)
	assert.Contains(t, err.Error(), "initializing")
}

func TestScriptStaticStateIsolation(t *testing.T) {
	class := `NAME=%s
COUNT=0
main() {
	COUNT=$((COUNT + 1))
	if [ "$1" = mutate ]; then NAME=mutated; fi
	printf '%%s:%%s' "$NAME" "$COUNT"
}
`
	cpA := classDir(t, map[string]string{"Main.sh": fmt.Sprintf(class, "a")})
	cpB := classDir(t, map[string]string{"Main.sh": fmt.Sprintf(class, "b")})

	l := &ScriptLoader{}
	a := load(t, l, cpA)
	b := load(t, l, cpB)

	_, out, _ := run(t, a, "mutate")
	assert.Equal(t, "mutated:1", out)

	_, out, _ = run(t, b)
	assert.Equal(t, "b:1", out)

	_, out, _ = run(t, a)
	assert.Equal(t, "a:1", out)
}

func TestScriptClasspathImport(t *testing.T) {
	cp := classDir(t, map[string]string{
		"util/Greeter.sh": `greet() { printf 'hello %s' "$1"; }`,
		"Main.sh":         "source classpath:util/Greeter.sh\nmain() { greet \"$1\"; }\n",
	})
	ep := load(t, &ScriptLoader{}, cp)

	_, out, _ := run(t, ep, "world")
	assert.Equal(t, "hello world", out)
}

func TestScriptClasspathIsReadOnly(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": `main() { echo x > classpath:Main.sh; }`,
	})
	ep := load(t, &ScriptLoader{}, cp)

	code, _, _ := run(t, ep)
	assert.NotEqual(t, 0, code)
}

func TestScriptExternalCommandsDisabled(t *testing.T) {
	cp := classDir(t, map[string]string{"Main.sh": `main() { ls; }`})
	ep := load(t, &ScriptLoader{AllowExec: false}, cp)

	code, _, stderr := run(t, ep)
	assert.Equal(t, 127, code)
	assert.Contains(t, stderr, "external commands are disabled")
}

func TestScriptBuildDirectory(t *testing.T) {
	cp := classDir(t, map[string]string{
		"Main.sh": `main() { printf '%s|%s|%s' "$(pwd)" "$TACKD_BUILD_DIR" "$EXTRA"; }`,
	})
	build := filepath.Join(t.TempDir(), "system", "build1")

	ep, err := (&ScriptLoader{Env: []string{"EXTRA=yes"}}).Load(context.Background(), cp, BuildID(build))
	require.NoError(t, err)
	defer ep.Close()

	assert.DirExists(t, build)
	_, out, _ := run(t, ep)
	assert.Equal(t, build+"|"+build+"|yes", out)
}

func TestScriptConcurrentRuns(t *testing.T) {
	cp := classDir(t, map[string]string{"Main.sh": `main() { printf '%s' "$1"; }`})
	ep := load(t, &ScriptLoader{}, cp)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var stdout bytes.Buffer
			want := fmt.Sprintf("run-%d", i)
			code, err := ep.Run(context.Background(), Stdio{Stdout: &stdout, Stderr: &bytes.Buffer{}}, []string{want})
			assert.NoError(t, err)
			assert.Equal(t, 0, code)
			assert.Equal(t, want, stdout.String())
		}()
	}
	wg.Wait()
}

func TestFuncEntryPoint(t *testing.T) {
	var got []string
	ep := Func(func(ctx context.Context, stdio Stdio, args []string) (int, error) {
		got = args
		return 4, nil
	})

	code, err := ep.Run(context.Background(), Stdio{}, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 4, code)
	assert.Equal(t, []string{"x"}, got)
	assert.NoError(t, ep.Close())
}
