package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-games/scribble-server/internal/config"
	"github.com/inkwell-games/scribble-server/internal/game"
	"github.com/inkwell-games/scribble-server/internal/moderation"
)

// Server owns the global connection set and both transports: the raw
// TCP line listener and the HTTP server carrying WebSocket upgrades.
type Server struct {
	registry     *game.Registry
	filter       moderation.Filter
	outboundSize int

	tcpAddr  string
	httpAddr string

	mu      sync.Mutex
	clients map[*client]struct{}

	listener net.Listener
	httpSrv  *http.Server
}

func New(cfg *config.AppConfig, registry *game.Registry, filter moderation.Filter) *Server {
	return &Server{
		registry:     registry,
		filter:       filter,
		outboundSize: cfg.OutboundSize,
		tcpAddr:      cfg.TCPAddr,
		httpAddr:     cfg.HTTPAddr,
		clients:      make(map[*client]struct{}),
	}
}

// ServeTCP accepts raw TCP clients until the listener closes.
func (s *Server) ServeTCP() error {
	listener, err := net.Listen("tcp", s.tcpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	zap.S().Infof("[ServeTCP] listening on %s", s.tcpAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go newClient(s, newTCPLineConn(conn)).run()
	}
}

// ServeHTTP runs the HTTP side: WebSocket upgrades plus the discovery
// endpoints.
func (s *Server) ServeHTTP() error {
	httpSrv := &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	zap.S().Infof("[ServeHTTP] listening on %s", s.httpAddr)

	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes both listeners and disconnects every client.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	listener := s.listener
	httpSrv := s.httpSrv
	snapshot := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	if httpSrv != nil {
		_ = httpSrv.Shutdown(ctx)
	}
	for _, c := range snapshot {
		c.close()
	}
	zap.S().Infof("[Shutdown] closed %d connections", len(snapshot))
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}
