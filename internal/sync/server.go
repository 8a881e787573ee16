package sync

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Authenticator resolves the token a TCP subscriber sends as its first line.
type Authenticator interface {
	PlayerID(ctx context.Context, token string) (string, error)
}

// Server accepts line-protocol subscribers. A client sends its token on the
// first line and then receives one JSON event per line.
type Server struct {
	Addr string
	Hub  *Hub
	Auth Authenticator

	mu sync.Mutex
	ln net.Listener
}

const authTimeout = 10 * time.Second

func NewServer(addr string, hub *Hub, auth Authenticator) *Server {
	return &Server{Addr: addr, Hub: hub, Auth: auth}
}

// Listen binds the address without serving, so callers see bind errors early.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Printf("[tcp-sync] listening on %s", ln.Addr())
	return nil
}

// ListenAddr is the bound address, or nil before Listen.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Run() error {
	if s.ListenAddr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	sc := bufio.NewScanner(conn)

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	if !sc.Scan() {
		_ = conn.Close()
		return
	}
	token := strings.TrimSpace(sc.Text())
	playerID, err := s.Auth.PlayerID(context.Background(), token)
	if err != nil || playerID == "" {
		_, _ = conn.Write([]byte("{\"type\":\"error\",\"message\":\"unauthorized\"}\n"))
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.Hub.Add(conn, playerID)
	s.Hub.Welcome(conn)
	log.Printf("[tcp-sync] client connected: %s player=%s", conn.RemoteAddr(), playerID)

	defer func() {
		s.Hub.Remove(conn)
		log.Printf("[tcp-sync] client disconnected: %s", conn.RemoteAddr())
	}()

	// incoming lines after the token are ignored
	for sc.Scan() {
	}
}

// Close stops accepting and drops the connected subscribers.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.Hub.CloseAll()
	return err
}
