package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/logger"
)

// Handler consumes the rebased event and frame stream.
type Handler interface {
	HandleEvent(ev input.Event)
	HandleFrame(ts float64)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The listener binds to loopback; producers are local tools.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	readLimit  = 1 << 16
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Options tunes a feed listener.
type Options struct {
	Addr string
	// UseFeedFrames forwards producer frame messages to the handler. When
	// false an internal frame clock paces the session and feed frames only
	// feed the drop counter.
	UseFeedFrames bool
	// Clock drives timestamp rebasing; socket deadlines always use real
	// time.
	Clock func() time.Time
}

// Server accepts one input producer over a websocket and forwards its
// stream to a handler, rebased onto the session timeline.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	handler    Handler
	opts       Options

	start time.Time

	mu         sync.Mutex
	active     bool
	conn       *websocket.Conn
	haveOffset bool
	offset     float64
	lastIndex  int64

	events  atomic.Int64
	frames  atomic.Int64
	dropped atomic.Int64
}

// HealthResponse is the healthz endpoint payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Connected     bool   `json:"connected"`
	Events        int64  `json:"events"`
	Frames        int64  `json:"frames"`
	DroppedFrames int64  `json:"dropped_frames"`
}

// NewServer creates a feed listener forwarding to handler.
func NewServer(handler Handler, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Server{
		handler:   handler,
		opts:      opts,
		start:     opts.Clock(),
		lastIndex: -1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux = mux

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listen address and begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Msg("Feed listener started")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Feed listener error")
		}
	}()

	return nil
}

// Stop shuts the listener down and drops the producer if one is connected.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	return s.httpServer.Shutdown(ctx)
}

// Connected reports whether a producer is currently attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// DroppedFrames returns how many producer frames never arrived, judged by
// gaps in the frame index.
func (s *Server) DroppedFrames() int64 {
	return s.dropped.Load()
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		logger.Warn().
			Str("remote", r.RemoteAddr).
			Msg("Rejecting second producer")
		http.Error(w, "producer already connected", http.StatusConflict)
		return
	}
	s.active = true
	s.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		logger.Error().Err(err).Msg("Failed to upgrade feed connection")
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.haveOffset = false
	s.lastIndex = -1
	s.mu.Unlock()

	logger.Info().
		Str("remote", r.RemoteAddr).
		Msg("Producer connected")

	s.readPump(conn)
}

// readPump reads producer messages until the connection dies. Pings keep
// the read deadline honest.
func (s *Server) readPump(conn *websocket.Conn) {
	done := make(chan struct{})
	go s.pingLoop(conn, done)

	defer func() {
		close(done)
		_ = conn.Close()
		s.mu.Lock()
		s.active = false
		s.conn = nil
		s.mu.Unlock()
		logger.Info().Msg("Producer disconnected")
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("Feed read error")
			}
			return
		}
		s.handleMessage(data)
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warn().Err(err).Msg("Invalid feed message")
		return
	}

	switch msg.Type {
	case TypeHello:
		logger.Info().
			Str("source", msg.Source).
			Msg("Producer hello")
	case TypeKey:
		kind := input.KeyRelease
		if msg.Pressed {
			kind = input.KeyPress
		}
		s.emit(input.Event{Timestamp: s.rebase(msg.TS), Kind: kind, Key: msg.Key})
	case TypeMouseMove:
		s.emit(input.Event{Timestamp: s.rebase(msg.TS), Kind: input.MouseMove, X: msg.X, Y: msg.Y})
	case TypeMouseButton:
		kind := input.MouseButtonRelease
		if msg.Pressed {
			kind = input.MouseButtonPress
		}
		s.emit(input.Event{Timestamp: s.rebase(msg.TS), Kind: kind, Button: msg.Button})
	case TypeMouseScroll:
		s.emit(input.Event{Timestamp: s.rebase(msg.TS), Kind: input.MouseScroll, ScrollX: msg.DX, ScrollY: msg.DY})
	case TypeFrame:
		s.handleFrame(msg)
	default:
		logger.Debug().
			Str("type", msg.Type).
			Msg("Ignoring unknown feed message")
	}
}

func (s *Server) emit(ev input.Event) {
	s.events.Add(1)
	s.handler.HandleEvent(ev)
}

func (s *Server) handleFrame(msg Message) {
	ts := s.rebase(msg.TS)

	s.mu.Lock()
	switch {
	case s.lastIndex < 0 || msg.Index <= s.lastIndex:
		// first frame of a connection, or a producer restart
		s.lastIndex = msg.Index
	default:
		if gap := msg.Index - s.lastIndex - 1; gap > 0 {
			s.dropped.Add(gap)
			logger.Warn().
				Int64("missed", gap).
				Int64("index", msg.Index).
				Msg("Producer skipped frames")
		}
		s.lastIndex = msg.Index
	}
	s.mu.Unlock()

	s.frames.Add(1)
	if s.opts.UseFeedFrames {
		s.handler.HandleFrame(ts)
	}
}

// rebase maps a producer timestamp onto the session timeline. The first
// timestamped message anchors the producer's clock; anything earlier than
// the anchor clamps to zero. Messages without a timestamp get stamped with
// the listener's elapsed time.
func (s *Server) rebase(tsMillis int64) float64 {
	elapsed := s.opts.Clock().Sub(s.start).Seconds()
	if tsMillis <= 0 {
		return elapsed
	}
	abs := float64(tsMillis) / 1000

	s.mu.Lock()
	if !s.haveOffset {
		s.offset = abs - elapsed
		s.haveOffset = true
	}
	offset := s.offset
	s.mu.Unlock()

	rel := abs - offset
	if rel < 0 {
		rel = 0
	}
	return rel
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	connected := s.active
	s.mu.Unlock()

	resp := HealthResponse{
		Status:        "ok",
		Connected:     connected,
		Events:        s.events.Load(),
		Frames:        s.frames.Load(),
		DroppedFrames: s.dropped.Load(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
