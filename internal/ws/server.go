// Package ws exposes transcription jobs over a WebSocket: clients submit
// jobs and watch their progress.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/pipeline"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Runner runs a job under the given id.
type Runner interface {
	Run(ctx context.Context, jobID string, req pipeline.Request, obs pipeline.Observer) pipeline.Result
}

type Server struct {
	runner   Runner
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	conns  map[*client]struct{}
	// watchers per running job id
	rooms map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // Protect concurrent writes from job goroutines
}

func (c *client) send(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(payload)
}

type message struct {
	Type  string          `json:"type"`
	TS    any             `json:"ts,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	JobID string          `json:"job_id,omitempty"`
}

func NewServer(runner Runner) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner: runner,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 16,
			WriteBufferSize: 1024 * 16,
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*client]struct{}),
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// Close refuses new jobs, cancels the running ones, waits for their results
// to go out and then closes every connection.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*client]struct{})
	s.mu.Unlock()
	for c := range conns {
		_ = c.conn.Close()
	}
}

func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	if !s.register(c) {
		return
	}
	defer s.leaveAll(c)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(readTimeout)); return nil })

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("ws read error")
			}
			return
		}
		// Bump read deadline on any activity
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt != websocket.TextMessage {
			continue
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.send(map[string]any{"type": "error", "detail": "invalid json"})
			continue
		}

		switch msg.Type {
		case "ping":
			_ = c.send(map[string]any{"type": "pong", "ts": msg.TS})
		case "submit":
			req, err := pipeline.ParseRequest(msg.Input)
			if err != nil {
				_ = c.send(map[string]any{"type": "error", "detail": err.Error()})
				break
			}
			jobID := uuid.NewString()
			if !s.reserve(jobID, c) {
				_ = c.send(map[string]any{"type": "error", "detail": "server is shutting down"})
				break
			}
			_ = c.send(map[string]any{"type": "accepted", "job_id": jobID})
			s.start(jobID, req)
		case "watch":
			if msg.JobID == "" {
				_ = c.send(map[string]any{"type": "error", "detail": "missing job_id"})
				break
			}
			if !s.watch(msg.JobID, c) {
				_ = c.send(map[string]any{"type": "error", "job_id": msg.JobID, "detail": "unknown job"})
				break
			}
			_ = c.send(map[string]any{"type": "watching", "job_id": msg.JobID})
		case "stop":
			_ = c.send(map[string]any{"type": "stopped"})
			return
		default:
			_ = c.send(map[string]any{"type": "error", "detail": "unknown message type"})
		}
	}
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

// reserve opens the room of a new job and counts it as running, unless the
// server is closing.
func (s *Server) reserve(jobID string, c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.joinRoom(jobID, c)
	s.wg.Add(1)
	return true
}

// start runs a job reserved with reserve.
func (s *Server) start(jobID string, req pipeline.Request) {
	go func() {
		defer s.wg.Done()
		log.Info().Str("job_id", jobID).Msg("ws: job started")

		res := s.runner.Run(s.ctx, jobID, req, func(ev pipeline.Event) {
			s.broadcast(ev.JobID, map[string]any{"type": "stage", "job_id": ev.JobID, "stage": ev.Stage})
		})
		s.broadcast(jobID, map[string]any{"type": "result", "job_id": jobID, "result": res})
		s.closeRoom(jobID)
	}()
}

// joinRoom must be called with s.mu held.
func (s *Server) joinRoom(jobID string, c *client) {
	m := s.rooms[jobID]
	if m == nil {
		m = make(map[*client]struct{})
		s.rooms[jobID] = m
	}
	m[c] = struct{}{}
}

// watch adds c to the watchers of a running job.
func (s *Server) watch(jobID string, c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.rooms[jobID]
	if m == nil {
		return false
	}
	m[c] = struct{}{}
	return true
}

func (s *Server) leaveAll(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	for _, m := range s.rooms {
		delete(m, c)
	}
}

func (s *Server) closeRoom(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, jobID)
}

func (s *Server) broadcast(jobID string, payload map[string]any) {
	s.mu.RLock()
	watchers := make([]*client, 0, len(s.rooms[jobID]))
	for c := range s.rooms[jobID] {
		watchers = append(watchers, c)
	}
	s.mu.RUnlock()

	for _, c := range watchers {
		if err := c.send(payload); err != nil {
			log.Debug().Err(err).Str("job_id", jobID).Msg("ws: failed to notify watcher")
		}
	}
}
