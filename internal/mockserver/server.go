// Package mockserver is an in-process imitation of the xAPI WebSocket server.
//
// It serves the command session at /{type} and the stream session at
// /{type}Stream, answers a handful of commands and pushes ticks and
// keep-alives to subscribers. Tests and cmd/xapi-mock use it.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// Handler answers a command on the command session. Returning nil sends no
// reply at all.
type Handler func(req Request) any

// Request is a decoded command. Stream commands carry their arguments as
// top-level fields, of which Symbol is the only one the server reads.
type Request struct {
	Command         string          `json:"command"`
	Arguments       json.RawMessage `json:"arguments,omitempty"`
	StreamSessionID string          `json:"streamSessionId,omitempty"`
	Symbol          string          `json:"symbol,omitempty"`
}

// Options configures a Server.
type Options struct {
	// AccountType is the path of the command session. Defaults to "demo".
	AccountType string
	// TickInterval is the period of tickPrices pushes.
	TickInterval time.Duration
	// KeepAliveInterval is the period of keepAlive pushes.
	KeepAliveInterval time.Duration
	// Handlers override or extend the built-in command handlers.
	Handlers map[string]Handler
	Logger   *zap.Logger
}

// Server represents a mock xAPI server
type Server struct {
	address  string
	opts     Options
	logger   *zap.Logger
	registry *Registry

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server

	tokensMu sync.Mutex
	tokens   map[string]bool

	pings       atomic.Int64
	commands    atomic.Int64
	disconnects atomic.Int64

	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Server instance
func New(address string, opts Options) *Server {
	if opts.AccountType == "" {
		opts.AccountType = "demo"
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		address:  address,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("component", "mockserver")),
		registry: NewRegistry(),
		tokens:   make(map[string]bool),
		quit:     make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving both sessions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/"+s.opts.AccountType, func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(w, r, false)
	})
	mux.HandleFunc("/"+s.opts.AccountType+"Stream", func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(w, r, true)
	})
	return mux
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	server := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	s.logger.Info("mock server started", zap.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-s.quit:
		return nil
	}
}

// Stop stops the server and drops every session.
func (s *Server) Stop() {
	s.quitOnce.Do(func() { close(s.quit) })

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server != nil {
		_ = server.Shutdown(context.Background())
	}
	s.registry.CloseAll()
	s.wg.Wait()
}

// DropSessions closes every connected socket without a close frame, as a
// failing network would.
func (s *Server) DropSessions() { s.registry.CloseAll() }

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int { return s.registry.Count() }

// PingCount returns the number of WebSocket ping frames received.
func (s *Server) PingCount() int64 { return s.pings.Load() }

// CommandCount returns the number of text commands received.
func (s *Server) CommandCount() int64 { return s.commands.Load() }

// Disconnects returns the number of sessions that have ended.
func (s *Server) Disconnects() int64 { return s.disconnects.Load() }

// IssueToken registers a stream session id as if a login had returned it.
func (s *Server) IssueToken() string {
	token := uuid.NewString()
	s.tokensMu.Lock()
	s.tokens[token] = true
	s.tokensMu.Unlock()
	return token
}

func (s *Server) validToken(token string) bool {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()
	return s.tokens[token]
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, stream bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	sess := newSession(conn, stream)
	conn.SetPingHandler(func(data string) error {
		s.pings.Add(1)
		_ = conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		return nil
	})

	s.registry.Register(sess)
	s.wg.Add(1)
	go s.handleSession(sess)
}

func (s *Server) handleSession(sess *session) {
	defer s.wg.Done()
	defer func() {
		s.registry.Unregister(sess)
		sess.close()
		s.disconnects.Add(1)
	}()

	for {
		messageType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("session ended", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.commands.Add(1)

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if !sess.stream {
				_ = sess.writeJSON(errorReply("BE118", "Invalid JSON"))
			}
			continue
		}

		if sess.stream {
			s.handleStreamCommand(sess, req)
			continue
		}

		if reply := s.handleCommand(req); reply != nil {
			if err := sess.writeJSON(reply); err != nil {
				return
			}
		}
	}
}

func errorReply(code, descr string) map[string]any {
	return map[string]any{"status": false, "errorCode": code, "errorDescr": descr}
}
