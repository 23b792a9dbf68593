package progress

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

// State is the status published by the server.
type State struct {
	Status        string    `json:"status"`
	Done          bool      `json:"done"`
	StopRequested bool      `json:"stop_requested"`
	Updated       time.Time `json:"updated"`
}

// Server publishes export progress over HTTP and accepts stop requests.
//
//	GET  /status  current State as JSON
//	POST /stop    request a cooperative stop
//	GET  /ws      State stream over a websocket
//
// Server implements Reporter.
type Server struct {
	log *zap.Logger

	mu      sync.Mutex
	state   State
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewServer creates a status server. Call Start to listen, or mount Handler.
func NewServer(log *zap.Logger) *Server {
	return &Server{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler with routing, panic recovery and access
// logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(zap.NewStdLog(s.log).Writer(), h)
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listening on %s", addr)
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server stopped", zap.Error(err))
		}
	}()

	s.log.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops the listener and closes every websocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Status publishes a new status line.
func (s *Server) Status(msg string) {
	s.update(func(st *State) { st.Status = msg })
}

// Done publishes the completion signal.
func (s *Server) Done() {
	s.update(func(st *State) { st.Done = true })
}

// StopRequested reports whether POST /stop was called.
func (s *Server) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.StopRequested
}

// Snapshot returns the current state.
func (s *Server) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	s.state.Updated = time.Now()

	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.Error("encoding status", zap.Error(err))
		return
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; it will catch up with the next update.
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.log.Warn("writing status", zap.Error(err))
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.update(func(st *State) { st.StopRequested = true })
	s.log.Info("stop requested", zap.String("remote", r.RemoteAddr))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	data, err := json.Marshal(s.state)
	if err == nil {
		c.send <- data
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.readPump(func() { s.unregister(c) })
	go c.writePump(s.log)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// readPump drains incoming frames so close and pong messages are handled, and
// unregisters the client once the connection is gone.
func (c *client) readPump(unregister func()) {
	defer unregister()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}
