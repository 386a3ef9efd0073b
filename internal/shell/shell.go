package shell

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/bridge"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneclick/internal/ipc"
	"github.com/GriffinCanCode/oneclick/internal/shared/id"
)

// ErrNotUninitialized is returned when Ready is signalled twice.
var ErrNotUninitialized = errors.New("shell already started")

// Window is the handle of the single application window.
type Window struct {
	ID        id.WindowID
	URL       string
	CreatedAt time.Time
}

// Options configures lifecycle behaviour.
type Options struct {
	// CloseGrace is how long the last view may be gone before the window
	// counts as closed. Page reloads reconnect within it.
	CloseGrace time.Duration
	// Persist keeps the shell resident after its window closes.
	Persist bool
}

// Shell owns the window and the application lifecycle.
type Shell struct {
	bridge  *bridge.Bridge
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	state  State
	window *Window
	views  map[id.ConnectionID]struct{}
	grace  *time.Timer
	done   chan struct{}
}

// New creates an uninitialized shell.
func New(b *bridge.Bridge, opts Options, logger *logging.Logger) *Shell {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Shell{
		bridge: b,
		opts:   opts,
		logger: logger.Named("shell"),
		views:  make(map[id.ConnectionID]struct{}),
		done:   make(chan struct{}),
	}
}

// WithMetrics attaches a metrics collector.
func (s *Shell) WithMetrics(m *monitoring.Metrics) *Shell {
	s.metrics = m
	s.publish()
	return s
}

// State returns the current state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Window returns a copy of the window handle while one exists.
func (s *Shell) Window() (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window == nil {
		return Window{}, false
	}
	return *s.window, true
}

// Done is closed when the shell terminates.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

// Ready handles the application-ready signal: it creates the window that
// is served at url.
func (s *Shell) Ready(url string) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Uninitialized {
		return Window{}, fmt.Errorf("%w: state is %s", ErrNotUninitialized, s.state)
	}

	s.window = &Window{
		ID:        id.NewWindowID(),
		URL:       url,
		CreatedAt: time.Now(),
	}
	s.transition(Ready)
	s.logger.Info("Window created",
		zap.String("window", s.window.ID.String()),
		zap.String("url", url),
	)
	return *s.window, nil
}

// Hooks returns the ipc connection hooks that track open views.
func (s *Shell) Hooks() ipc.Hooks {
	return ipc.Hooks{
		OnOpen:  s.ViewOpened,
		OnClose: s.ViewClosed,
	}
}

// ViewOpened records a live view of the window.
func (s *Shell) ViewOpened(conn id.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return
	}
	s.views[conn] = struct{}{}
	if s.grace != nil {
		s.grace.Stop()
		s.grace = nil
	}
	s.publishViews()
}

// ViewClosed records a closed view. When none remain for the grace period
// the window counts as closed.
func (s *Shell) ViewClosed(conn id.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[conn]; !ok {
		return
	}
	delete(s.views, conn)
	s.publishViews()

	if len(s.views) > 0 || s.state != Ready {
		return
	}
	if s.grace != nil {
		s.grace.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.opts.CloseGrace, func() {
		s.mu.Lock()
		stale := s.grace != timer || len(s.views) > 0
		s.grace = nil
		s.mu.Unlock()
		if !stale {
			s.WindowAllClosed()
		}
	})
	s.grace = timer
}

// WindowAllClosed handles the last window closing. A persistent shell stays
// ready; otherwise it terminates.
func (s *Shell) WindowAllClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return
	}
	if s.opts.Persist {
		s.logger.Info("All windows closed, staying resident")
		return
	}
	s.logger.Info("All windows closed, quitting")
	s.transition(Closing)
	s.terminate()
}

// Quit terminates the shell from any state.
func (s *Shell) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Terminated {
		return
	}
	s.logger.Info("Quit requested", zap.Stringer("from", s.state))
	s.terminate()
}

// terminate must be called with s.mu held.
func (s *Shell) terminate() {
	if s.grace != nil {
		s.grace.Stop()
		s.grace = nil
	}
	if s.window != nil {
		s.logger.Info("Window destroyed", zap.String("window", s.window.ID.String()))
	}
	s.window = nil
	s.views = make(map[id.ConnectionID]struct{})
	s.publishViews()
	s.transition(Terminated)
	close(s.done)
}

// transition must be called with s.mu held.
func (s *Shell) transition(to State) {
	s.logger.Debug("State change", zap.Stringer("from", s.state), zap.Stringer("to", to))
	s.state = to
	if s.metrics != nil {
		s.metrics.SetShellState(to.String(), States())
	}
}

func (s *Shell) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.SetShellState(s.state.String(), States())
	s.publishViews()
}

func (s *Shell) publishViews() {
	if s.metrics != nil {
		s.metrics.SetWindowsOpen(len(s.views))
	}
}
