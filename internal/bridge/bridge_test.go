package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/oneclick/internal/domain/action"
	"github.com/GriffinCanCode/oneclick/internal/domain/runner"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/ipc"
	"github.com/GriffinCanCode/oneclick/internal/sandbox"
)

const twoActions = `
actions:
  - name: install-node
    method: installNode
    args: ["-File", "${APP_DIR}/scripts/install.ps1"]
    platforms:
      default:
        executable: /usr/bin/pwsh
  - name: install-git
    method: installGit
    args: ["-File", "${APP_DIR}/scripts/git.ps1"]
    platforms:
      default:
        executable: /usr/bin/pwsh
`

func registry(t *testing.T) *action.Registry {
	t.Helper()
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	reg, err := action.Default(dir)
	require.NoError(t, err)
	return reg
}

// wired builds a dispatcher-backed bridge whose actions all report out.
func wired(t *testing.T, reg *action.Registry, executor runner.Executor) *Bridge {
	t.Helper()
	d := ipc.NewDispatcher(logging.NewNop())
	r := runner.New(runner.WithExecutor(executor), runner.WithLogger(logging.NewNop()))
	require.NoError(t, Register(d, reg, r))
	d.Seal()
	return New(reg, d)
}

func reporting(out runner.Outcome) runner.Executor {
	return runner.ExecutorFunc(func(context.Context, runner.Command) runner.Outcome { return out })
}

func TestExactSurface(t *testing.T) {
	b := wired(t, registry(t), reporting(runner.Outcome{Started: true}))

	assert.Equal(t, []string{"installNode"}, b.Methods())
	assert.Equal(t, []Binding{{Method: "installNode", Channel: "install-node"}}, b.Bindings())

	fns := b.Functions()
	require.Len(t, fns, 1)
	_, ok := fns["installNode"]
	assert.True(t, ok)
	for _, generic := range []string{"invoke", "send", "exec", "call"} {
		_, ok := fns[generic]
		assert.False(t, ok, generic)
	}
}

func TestSurfaceFollowsRegistry(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	reg, err := action.Load([]byte(twoActions), dir, "linux")
	require.NoError(t, err)

	b := wired(t, reg, reporting(runner.Outcome{Started: true}))
	methods := b.Methods()
	sort.Strings(methods)
	assert.Equal(t, []string{"installGit", "installNode"}, methods)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name   string
		result runner.Result
		want   string
	}{
		{"success", runner.Success("done"), "done"},
		{"success untrimmed", runner.Success("ok\r\n"), "ok\r\n"},
		{"success empty", runner.Success(""), ""},
		{"failure", runner.Failure("disk full"), "Error: disk full"},
		{"success that looks like an error", runner.Success("Error: from script"), "Error: from script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(tt.result))
		})
	}
}

func TestInvocationReports(t *testing.T) {
	tests := []struct {
		name    string
		outcome runner.Outcome
		want    string
		prefix  bool
	}{
		{
			name:    "script succeeds",
			outcome: runner.Outcome{Stdout: "done", Started: true},
			want:    "done",
		},
		{
			name:    "script fails with stderr",
			outcome: runner.Outcome{Stderr: "disk full", ExitCode: 1, Started: true, Err: errors.New("exit status 1")},
			want:    "Error: disk full",
		},
		{
			name:    "interpreter missing",
			outcome: runner.Outcome{ExitCode: -1, Err: exec.ErrNotFound},
			want:    "Error: ",
			prefix:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := wired(t, registry(t), reporting(tt.outcome))
			got := <-b.Functions()["installNode"](context.Background())
			if tt.prefix {
				assert.True(t, strings.HasPrefix(got, tt.want), got)
				assert.Greater(t, len(got), len(tt.want))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	var spawned atomic.Int32
	executor := runner.ExecutorFunc(func(context.Context, runner.Command) runner.Outcome {
		n := spawned.Add(1)
		time.Sleep(20 * time.Millisecond)
		if n%2 == 0 {
			return runner.Outcome{Stderr: "busy", ExitCode: 1, Started: true, Err: errors.New("exit status 1")}
		}
		return runner.Outcome{Stdout: "done", Started: true}
	})
	fn := wired(t, registry(t), executor).Functions()["installNode"]

	const calls = 6
	var wg sync.WaitGroup
	results := make([]string, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = <-fn(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(calls), spawned.Load())
	var ok, failed int
	for _, r := range results {
		switch r {
		case "done":
			ok++
		case "Error: busy":
			failed++
		default:
			t.Fatalf("unexpected report %q", r)
		}
	}
	assert.Equal(t, calls/2, ok)
	assert.Equal(t, calls/2, failed)
}

type panickingInvoker struct{}

func (panickingInvoker) Call(context.Context, string) string { panic("boom") }

func TestFunctionAlwaysYields(t *testing.T) {
	b := New(registry(t), panickingInvoker{})

	select {
	case got := <-b.Functions()["installNode"](context.Background()):
		assert.Equal(t, "Error: boom", got)
	case <-time.After(time.Second):
		t.Fatal("function never yielded")
	}
}

func TestRegisterRejectsSealedDispatcher(t *testing.T) {
	d := ipc.NewDispatcher(logging.NewNop())
	d.Seal()
	err := Register(d, registry(t), runner.New())
	assert.ErrorIs(t, err, ipc.ErrSealed)
}

func TestExpose(t *testing.T) {
	b := wired(t, registry(t), reporting(runner.Outcome{Stdout: "done", Started: true}))

	rt, err := sandbox.New(sandbox.DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()
	require.NoError(t, b.Expose(rt))

	res, err := rt.Execute(context.Background(), "shellAPI.installNode()")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Value)

	res, err = rt.Execute(context.Background(), `
		shellAPI.invoke = function (ch) { return ch; };
		Object.keys(shellAPI).join(',') + '|' + typeof shellAPI.invoke
	`)
	require.NoError(t, err)
	assert.Equal(t, "installNode|undefined", res.Value)
}

func TestExposeFailureResolves(t *testing.T) {
	b := wired(t, registry(t), reporting(runner.Outcome{Stderr: "disk full", ExitCode: 1, Started: true, Err: errors.New("exit status 1")}))

	rt, err := sandbox.New(sandbox.DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()
	require.NoError(t, b.Expose(rt))

	res, err := rt.Execute(context.Background(), `
		shellAPI.installNode().then(r => 'resolved:' + r, e => 'rejected:' + e)
	`)
	require.NoError(t, err)
	assert.Equal(t, "resolved:Error: disk full", res.Value)
}

func TestExposeOutlivesSandboxDeadline(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan error, 1)
	b := wired(t, registry(t), runner.ExecutorFunc(func(ctx context.Context, _ runner.Command) runner.Outcome {
		<-release
		finished <- ctx.Err()
		return runner.Outcome{Stdout: "done", Started: true}
	}))

	rt, err := sandbox.New(sandbox.Config{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer rt.Close()
	require.NoError(t, b.Expose(rt))

	_, err = rt.Execute(context.Background(), "shellAPI.installNode()")
	require.ErrorIs(t, err, sandbox.ErrTimeout)

	close(release)
	select {
	case err := <-finished:
		assert.NoError(t, err, "action context cancelled with the sandbox")
	case <-time.After(5 * time.Second):
		t.Fatal("action never finished")
	}
}

func TestPreload(t *testing.T) {
	b := wired(t, registry(t), reporting(runner.Outcome{Started: true}))

	js, err := b.Preload()
	require.NoError(t, err)
	assert.Contains(t, js, `[{"method":"installNode","channel":"install-node"}]`)
	assert.Contains(t, js, `"/ipc"`)
	assert.Contains(t, js, `"shellAPI"`)
	assert.Contains(t, js, "Object.freeze(api)")
	assert.NotContains(t, js, "{{")
	assert.NotContains(t, js, "require(")
}

func TestMount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := wired(t, registry(t), reporting(runner.Outcome{Stdout: "done", Started: true}))

	router := gin.New()
	b.Mount(router.Group("/bridge"))

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{http.MethodPost, "/bridge/installNode", http.StatusOK, "done"},
		{http.MethodPost, "/bridge/exec", http.StatusNotFound, ""},
		{http.MethodPost, "/bridge/install-node", http.StatusNotFound, ""},
		{http.MethodGet, "/bridge/installNode", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
