package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the JSON frame exchanged with UI clients.
//
// Requests:  {"type":"process","urls":[...]} and {"type":"ask","content":"..."}.
// Responses: "status", "done", "answer" (Sources set), "not_initialized" and "error".
type Message struct {
	Type    string            `json:"type"`
	Content string            `json:"content,omitempty"`
	URLs    []string          `json:"urls,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Sources []string          `json:"sources,omitempty"`
}

// Pipeline is the part of rag.Pipeline the server drives.
type Pipeline interface {
	ProcessURLs(ctx context.Context, urls []string, headers map[string]string) <-chan rag.Status
	Ask(ctx context.Context, question string) (answer string, sources string, err error)
}

type WSServer struct {
	pipeline Pipeline
	headers  map[string]string
	log      *slog.Logger

	// one ingestion or question at a time against the shared store
	work sync.Mutex
}

func NewWSServer(pipeline Pipeline, headers map[string]string, log *slog.Logger) *WSServer {
	if log == nil {
		log = logger.Discard()
	}
	return &WSServer{
		pipeline: pipeline,
		headers:  headers,
		log:      log.With("component", "server"),
	}
}

// Handler serves the WebSocket endpoint at /ws and a health check at /health.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting websocket server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// conn serializes writes, gorilla connections allow one writer at a time.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("error reading message", "error", err)
			}
			cancel()
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("error unmarshaling message", "error", err)
			s.send(c, Message{Type: "error", Content: "invalid message"})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	s.work.Lock()
	defer s.work.Unlock()

	switch msg.Type {
	case "process":
		s.process(ctx, c, msg)
	case "ask":
		s.ask(ctx, c, msg)
	default:
		s.send(c, Message{Type: "error", Content: fmt.Sprintf("unknown message type: %s", msg.Type)})
	}
}

func (s *WSServer) process(ctx context.Context, c *conn, msg Message) {
	headers := make(map[string]string, len(s.headers)+len(msg.Headers))
	for k, v := range s.headers {
		headers[k] = v
	}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	for status := range s.pipeline.ProcessURLs(ctx, msg.URLs, headers) {
		switch {
		case status.Fatal():
			s.send(c, Message{Type: "error", Content: status.String()})
			return
		case status.Chunks > 0:
			s.send(c, Message{Type: "done", Content: status.Message})
		default:
			s.send(c, Message{Type: "status", Content: status.String()})
		}
	}
}

func (s *WSServer) ask(ctx context.Context, c *conn, msg Message) {
	answer, sources, err := s.pipeline.Ask(ctx, msg.Content)
	switch {
	case errors.Is(err, rag.ErrStoreNotInitialized):
		s.send(c, Message{Type: "not_initialized", Content: "Please process URLs first before asking questions"})
		return
	case err != nil:
		s.log.Error("failed to answer question", "error", err)
		s.send(c, Message{Type: "error", Content: err.Error()})
		return
	}

	reply := Message{Type: "answer", Content: answer}
	if sources != "" {
		reply.Sources = strings.Split(sources, "\n")
	}
	s.send(c, reply)
}

func (s *WSServer) send(c *conn, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		s.log.Warn("error sending message", "type", msg.Type, "error", err)
	}
}
