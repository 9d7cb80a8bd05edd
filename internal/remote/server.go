// ABOUTME: WebSocket remote control endpoint for the audio session
// ABOUTME: Streams session status to clients and turns their JSON into bus commands
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/audiosession/internal/events"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "remote")

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 32
)

// SnapshotSource provides the current session state for new clients
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// Config holds server configuration
type Config struct {
	Addr    string
	Path    string
	Bus     *events.Bus
	Session SnapshotSource
}

// Server serves the remote control websocket
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener

	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	unsubscribe func()
	wg          sync.WaitGroup
}

// client is one connected controller
type client struct {
	conn     *websocket.Conn
	addr     string
	sendChan chan Message
}

// New creates a remote server subscribed to session updates on the bus
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = "/remote"
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network control surface; browsers on any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	s.mux.HandleFunc("/status", s.handleStatus)

	if config.Bus != nil {
		s.unsubscribe = config.Bus.Subscribe(func(ev events.SessionUpdate) {
			s.broadcast(Message{Type: TypeStatus, Status: newStatus(ev.Snapshot, ev.Changed)})
		})
	}

	return s
}

// Handle registers an extra handler on the server mux
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler returns the server mux
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Infof("Remote control listening on %s%s", ln.Addr(), s.config.Path)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, 0 before Start
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Stop shuts the server down and disconnects all clients
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// hijacked connections are not closed by Shutdown
	s.clientsMu.RLock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
	return err
}

// Clients returns the number of connected controllers
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleStatus serves the current snapshot as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.config.Session == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newStatus(s.config.Session.Snapshot(), 0))
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	log.Infof("Remote connected from %s", r.RemoteAddr)

	c := &client{
		conn:     conn,
		addr:     r.RemoteAddr,
		sendChan: make(chan Message, sendBuffer),
	}

	// the initial status goes ahead of any broadcast
	if s.config.Session != nil {
		c.sendChan <- Message{Type: TypeStatus, Status: newStatus(s.config.Session.Snapshot(), 0)}
	}

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	s.readLoop(c)

	s.clientsMu.Lock()
	delete(s.clients, c)
	close(c.sendChan)
	s.clientsMu.Unlock()
	conn.Close()

	log.Infof("Remote disconnected: %s", c.addr)
}

// readLoop decodes commands until the connection fails
func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("WebSocket error: %v", err)
			}
			return
		}

		cmd, err := parseCommand(data)
		if err != nil {
			s.send(c, Message{Type: TypeError, Error: err.Error()})
			continue
		}
		cmd.Source = "remote:" + c.addr

		log.Debugf("Command %s from %s", cmd.Command, c.addr)
		if s.config.Bus != nil {
			s.config.Bus.Publish(cmd)
		}
	}
}

// clientWriter sends queued messages and keeps the connection alive
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debugf("Error writing to %s: %v", c.addr, err)
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// send queues a message for one client, dropping it when the client lags
func (s *Server) send(c *client, msg Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.sendChan <- msg:
	default:
		log.Warnf("Dropping message for slow remote %s", c.addr)
	}
}

// broadcast queues a message for every client
func (s *Server) broadcast(msg Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
			log.Warnf("Dropping status for slow remote %s", c.addr)
		}
	}
}

// parseCommand decodes and validates a client command
func parseCommand(data []byte) (events.Command, error) {
	var cmd events.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("invalid command: %w", err)
	}

	switch cmd.Command {
	case events.CommandVolume:
		if cmd.Volume < 0 {
			return cmd, fmt.Errorf("volume must not be negative")
		}
	case events.CommandDevice:
		if cmd.Device == "" {
			return cmd, fmt.Errorf("device name required")
		}
	case events.CommandMute, events.CommandToggle, events.CommandVolumeUp, events.CommandVolumeDown,
		events.CommandToggleEnabled, events.CommandDelayAdd, events.CommandDelayRemove, events.CommandPlayPause:
	case "":
		return cmd, fmt.Errorf("missing command")
	default:
		return cmd, fmt.Errorf("unknown command %q", cmd.Command)
	}
	return cmd, nil
}
