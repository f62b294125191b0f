// Package chattest runs an in-process chat server for tests. It speaks the
// room protocol over WebSocket at /chat and serves the history and catalog
// endpoints over HTTP.
package chattest

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/roomchat/chat-tui/internal/client"
	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/protocol"
)

// WSPath is the WebSocket route.
const WSPath = "/chat"

// Server is a fake chat server.
type Server struct {
	http        *httptest.Server
	broadcaster *broadcaster
	received    chan protocol.ChatMessage
	now         func() time.Time

	mu            sync.Mutex
	history       []protocol.ChatMessage // chronological
	historyStatus int
	historyDelay  time.Duration
	catalogs      i18n.Loader
}

// New starts a server. Catalogs default to the embedded ones.
func New() *Server {
	s := &Server{
		broadcaster: newBroadcaster(),
		received:    make(chan protocol.ChatMessage, 256),
		now:         func() time.Time { return time.Now().UTC() },
		catalogs:    i18n.Embedded(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(WSPath, s.handleWS)
	mux.HandleFunc(client.HistoryPath, s.handleHistory)
	mux.HandleFunc(client.CatalogPrefix, s.handleCatalog)
	s.http = httptest.NewServer(mux)
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.broadcaster.closeAll(websocket.CloseGoingAway)
	s.http.Close()
}

// WSURL returns the ws:// URL of the chat endpoint.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + WSPath
}

// HTTPBase returns the http:// base URL.
func (s *Server) HTTPBase() string { return s.http.URL }

// Received delivers every frame the server parsed, in arrival order.
func (s *Server) Received() <-chan protocol.ChatMessage { return s.received }

// ClientCount returns the number of open connections.
func (s *Server) ClientCount() int { return s.broadcaster.count() }

// SetHistory replaces the stored history. msgs are chronological.
func (s *Server) SetHistory(msgs ...protocol.ChatMessage) {
	s.mu.Lock()
	s.history = append([]protocol.ChatMessage(nil), msgs...)
	s.mu.Unlock()
}

// FailHistory makes the history endpoint answer with status. Zero restores
// normal behaviour.
func (s *Server) FailHistory(status int) {
	s.mu.Lock()
	s.historyStatus = status
	s.mu.Unlock()
}

// DelayHistory holds every history response for d.
func (s *Server) DelayHistory(d time.Duration) {
	s.mu.Lock()
	s.historyDelay = d
	s.mu.Unlock()
}

// SetCatalogs replaces the loader the catalog endpoint serves from.
func (s *Server) SetCatalogs(l i18n.Loader) {
	s.mu.Lock()
	s.catalogs = l
	s.mu.Unlock()
}

// Broadcast sends m to every connection.
func (s *Server) Broadcast(m protocol.ChatMessage) { s.broadcaster.broadcast(m) }

// BroadcastRaw sends an unparsed frame to every connection.
func (s *Server) BroadcastRaw(data []byte) {
	for _, c := range s.broadcaster.snapshot() {
		c.deliver(data)
	}
}

// DropAll closes every connection with code.
func (s *Server) DropAll(code int) { s.broadcaster.closeAll(code) }

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("chattest: ws upgrade error: %v", err)
		return
	}

	c := s.broadcaster.add(conn)
	s.broadcaster.sendTo(c, s.userCount())

	go func() {
		defer s.disconnect(c)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleFrame(c, data)
		}
	}()
}

func (s *Server) handleFrame(c *peer, data []byte) {
	m, err := protocol.Parse(data)
	if err != nil {
		s.broadcaster.sendTo(c, protocol.ChatMessage{Type: protocol.TypeError, Name: "System", Message: "Error processing message"})
		return
	}
	select {
	case s.received <- m:
	default:
	}
	m.Timestamp = s.now().Format(time.RFC3339)

	if c.register(m.Name) {
		if m.Type != protocol.TypeJoin {
			s.record(protocol.NewJoin(m.Name), m.Timestamp)
		} else {
			s.record(m, m.Timestamp)
		}
		s.broadcaster.broadcast(s.userCount())
		if m.Type == protocol.TypeJoin {
			return
		}
	}

	switch m.Type {
	case protocol.TypeLeave:
		if _, first := c.markLeft(); first {
			s.record(m, m.Timestamp)
		}
	case protocol.TypeChat:
		s.record(m, m.Timestamp)
	default:
		s.broadcaster.broadcast(m)
	}
}

// record stores m in the history and broadcasts it.
func (s *Server) record(m protocol.ChatMessage, ts string) {
	m.Timestamp = ts
	s.mu.Lock()
	s.history = append(s.history, m)
	s.mu.Unlock()
	s.broadcaster.broadcast(m)
}

func (s *Server) disconnect(c *peer) {
	s.broadcaster.remove(c)
	if name, first := c.markLeft(); first {
		s.record(protocol.NewLeave(name), s.now().Format(time.RFC3339))
	}
	s.broadcaster.broadcast(s.userCount())
}

func (s *Server) userCount() protocol.ChatMessage {
	return protocol.ChatMessage{
		Type:    protocol.TypeUserCount,
		Name:    "System",
		Message: strconv.Itoa(s.broadcaster.count()),
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, delay := s.historyStatus, s.historyDelay
	newestFirst := lo.Reverse(append([]protocol.ChatMessage(nil), s.history...))
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newestFirst)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, client.CatalogPrefix)
	locale := strings.TrimSuffix(strings.TrimPrefix(name, "messages_"), ".json")
	if locale == "" || locale == name {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	loader := s.catalogs
	s.mu.Unlock()

	messages, err := loader.Load(context.Background(), locale)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
