package shell

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/oneclick/internal/bridge"
	"github.com/GriffinCanCode/oneclick/internal/domain/action"
	"github.com/GriffinCanCode/oneclick/internal/domain/runner"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneclick/internal/ipc"
	"github.com/GriffinCanCode/oneclick/internal/sandbox"
	"github.com/GriffinCanCode/oneclick/internal/shared/id"
)

func testBridge(t *testing.T, out runner.Outcome) *bridge.Bridge {
	t.Helper()
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	reg, err := action.Default(dir)
	require.NoError(t, err)

	d := ipc.NewDispatcher(logging.NewNop())
	exec := runner.ExecutorFunc(func(context.Context, runner.Command) runner.Outcome { return out })
	require.NoError(t, bridge.Register(d, reg, runner.New(runner.WithExecutor(exec))))
	d.Seal()
	return bridge.New(reg, d)
}

func newShell(t *testing.T, opts Options) *Shell {
	t.Helper()
	return New(testBridge(t, runner.Outcome{Stdout: "done", Started: true}), opts, logging.NewNop())
}

func terminated(s *Shell) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func TestReadyCreatesWindow(t *testing.T) {
	s := newShell(t, Options{CloseGrace: time.Second})
	assert.Equal(t, Uninitialized, s.State())
	_, ok := s.Window()
	assert.False(t, ok)

	w, err := s.Ready("http://127.0.0.1:8765/")
	require.NoError(t, err)
	assert.Equal(t, Ready, s.State())
	assert.True(t, id.Valid(w.ID.String(), id.WindowPrefix))
	assert.Equal(t, "http://127.0.0.1:8765/", w.URL)

	got, ok := s.Window()
	require.True(t, ok)
	assert.Equal(t, w, got)

	_, err = s.Ready("http://127.0.0.1:8765/")
	assert.ErrorIs(t, err, ErrNotUninitialized)
}

func TestWindowAllClosedQuits(t *testing.T) {
	s := newShell(t, Options{})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	s.WindowAllClosed()
	assert.Equal(t, Terminated, s.State())
	assert.True(t, terminated(s))
	_, ok := s.Window()
	assert.False(t, ok)
}

func TestWindowAllClosedPersists(t *testing.T) {
	s := newShell(t, Options{Persist: true})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	s.WindowAllClosed()
	assert.Equal(t, Ready, s.State())
	assert.False(t, terminated(s))
	_, ok := s.Window()
	assert.True(t, ok)

	s.Quit()
	assert.Equal(t, Terminated, s.State())
	assert.True(t, terminated(s))
}

func TestQuitFromAnyState(t *testing.T) {
	s := newShell(t, Options{})
	s.Quit()
	assert.Equal(t, Terminated, s.State())
	assert.True(t, terminated(s))

	// Idempotent.
	s.Quit()
	s.WindowAllClosed()
	assert.Equal(t, Terminated, s.State())
}

func TestLastViewClosingAfterGrace(t *testing.T) {
	s := newShell(t, Options{CloseGrace: 20 * time.Millisecond})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	a, b := id.NewConnectionID(), id.NewConnectionID()
	s.ViewOpened(a)
	s.ViewOpened(b)
	s.ViewClosed(a)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, Ready, s.State(), "one view is still open")

	s.ViewClosed(b)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("shell did not terminate after the last view closed")
	}
	assert.Equal(t, Terminated, s.State())
}

func TestReloadWithinGrace(t *testing.T) {
	s := newShell(t, Options{CloseGrace: 100 * time.Millisecond})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	first := id.NewConnectionID()
	s.ViewOpened(first)
	s.ViewClosed(first)
	s.ViewOpened(id.NewConnectionID())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, Ready, s.State())
}

func TestPersistentShellReactivates(t *testing.T) {
	s := newShell(t, Options{CloseGrace: 10 * time.Millisecond, Persist: true})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	conn := id.NewConnectionID()
	s.ViewOpened(conn)
	s.ViewClosed(conn)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, Ready, s.State())

	s.ViewOpened(id.NewConnectionID())
	assert.Equal(t, Ready, s.State())
	assert.False(t, terminated(s))
}

func TestUnknownViewCloseIgnored(t *testing.T) {
	s := newShell(t, Options{CloseGrace: time.Millisecond})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	s.ViewClosed(id.NewConnectionID())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Ready, s.State())
}

func TestMetricsFollowState(t *testing.T) {
	m := monitoring.NewMetrics()
	s := newShell(t, Options{}).WithMetrics(m)
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)
	s.ViewOpened(id.NewConnectionID())

	body := scrape(t, m)
	assert.Contains(t, body, `state="ready"} 1`)
	assert.Contains(t, body, "oneclick_windows_open 1")

	s.Quit()
	body = scrape(t, m)
	assert.Contains(t, body, `state="terminated"} 1`)
	assert.Contains(t, body, `state="ready"} 0`)
}

func scrape(t *testing.T, m *monitoring.Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestMountServesPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newShell(t, Options{})
	router := gin.New()
	require.NoError(t, s.Mount(router))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	var scripts []string
	doc.Find("head script").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		scripts = append(scripts, src)
	})
	assert.Equal(t, []string{"/preload.js", "/renderer.js"}, scripts)
	assert.Equal(t, 1, doc.Find("button#install").Length())
	assert.Equal(t, 1, doc.Find("#output").Length())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preload.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"installNode"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/renderer.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shellAPI")
	assert.NotContains(t, w.Body.String(), "require(")
}

func TestMountCompresses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newShell(t, Options{})
	router := gin.New()
	require.NoError(t, s.Mount(router))

	req := httptest.NewRequest(http.MethodGet, "/preload.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Object.freeze(api)")
}

func TestRunHeadless(t *testing.T) {
	s := newShell(t, Options{})

	report, err := s.RunHeadless(context.Background(), sandbox.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "done", report)
	assert.Equal(t, Terminated, s.State())
}

func TestRunHeadlessFailureReport(t *testing.T) {
	b := testBridge(t, runner.Outcome{Stderr: "disk full", ExitCode: 1, Started: true, Err: errors.New("exit status 1")})
	s := New(b, Options{}, logging.NewNop())

	report, err := s.RunHeadless(context.Background(), sandbox.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report, "Error: "))
	assert.Equal(t, "Error: disk full", report)
}

func TestRunHeadlessAfterReady(t *testing.T) {
	s := newShell(t, Options{})
	_, err := s.Ready("http://localhost/")
	require.NoError(t, err)

	_, err = s.RunHeadless(context.Background(), sandbox.DefaultConfig())
	assert.ErrorIs(t, err, ErrNotUninitialized)
	assert.Equal(t, Terminated, s.State())
}

func TestPageHasNoInlineScript(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newShell(t, Options{})
	router := gin.New()
	require.NoError(t, s.Mount(router))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	doc, err := htmlquery.Parse(w.Body)
	require.NoError(t, err)

	inline, err := htmlquery.QueryAll(doc, "//script[not(@src)]")
	require.NoError(t, err)
	assert.Empty(t, inline)

	handlers, err := htmlquery.QueryAll(doc, "//*[@onclick or @onload]")
	require.NoError(t, err)
	assert.Empty(t, handlers)

	button, err := htmlquery.Query(doc, "//button[@id='install']")
	require.NoError(t, err)
	require.NotNil(t, button)
	assert.Equal(t, "Install Node.js", htmlquery.InnerText(button))
}
