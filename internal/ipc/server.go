package ipc

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/oneclick/internal/shared/id"
)

// Hooks observe connection lifetimes.
type Hooks struct {
	OnOpen  func(conn id.ConnectionID)
	OnClose func(conn id.ConnectionID)
}

// Server carries ipc requests over websocket connections.
type Server struct {
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	hooks      Hooks
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	allowHost  func(hostport string) bool
}

// NewServer creates a websocket transport for d.
func NewServer(d *Dispatcher, hooks Hooks, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		dispatcher: d,
		hooks:      hooks,
		logger:     logger.Named("ipc"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.sameOrigin,
	}
	return s
}

// WithMetrics attaches a metrics collector.
func (s *Server) WithMetrics(m *monitoring.Metrics) *Server {
	s.metrics = m
	return s
}

// WithTracer starts a span for every invocation.
func (s *Server) WithTracer(t *tracing.Tracer) *Server {
	s.tracer = t
	return s
}

// WithHostCheck restricts upgrades to requests whose Host, and Origin
// when present, satisfy allow.
func (s *Server) WithHostCheck(allow func(hostport string) bool) *Server {
	s.allowHost = allow
	return s
}

// HandleConnection upgrades the request and serves it until the peer leaves.
func (s *Server) HandleConnection(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := id.NewConnectionID()
	log := s.logger.With(zap.String("conn", connID.String()))
	log.Debug("Connection opened")

	if s.metrics != nil {
		s.metrics.IncWSConnections()
		defer s.metrics.DecWSConnections()
	}
	if s.hooks.OnOpen != nil {
		s.hooks.OnOpen(connID)
	}
	if s.hooks.OnClose != nil {
		defer s.hooks.OnClose(connID)
	}

	// A closing window does not cancel work already in flight.
	ctx := context.WithoutCancel(c.Request.Context())

	var writeMu sync.Mutex
	write := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		data, err := sonic.Marshal(resp)
		if err == nil {
			err = conn.WriteMessage(websocket.TextMessage, data)
		}
		if err != nil {
			log.Debug("Dropped response for closed connection",
				zap.String("request", resp.ID),
				zap.Error(err),
			)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			log.Debug("Connection closed")
			return
		}

		var req Request
		if err := sonic.Unmarshal(data, &req); err != nil {
			write(Response{Payload: ErrorReport("malformed request: %v", err)})
			continue
		}
		if req.ID == "" {
			req.ID = id.NewRequestID().String()
		}

		go s.serve(ctx, req, write)
	}
}

func (s *Server) serve(ctx context.Context, req Request, write func(Response)) {
	if s.tracer == nil {
		write(s.dispatcher.Invoke(ctx, req))
		return
	}
	span, ctx := s.tracer.StartSpan(ctx, "ipc "+req.Channel)
	span.SetTag("request", req.ID)
	resp := s.dispatcher.Invoke(ctx, req)
	span.Finish()
	s.tracer.Submit(span)
	write(resp)
}

// sameOrigin admits non-browser clients and pages served by this host.
func (s *Server) sameOrigin(r *http.Request) bool {
	if s.allowHost != nil && !s.allowHost(r.Host) {
		return false
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
