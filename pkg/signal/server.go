package signal

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/cloudmeet/signal/pkg/log"
	"github.com/cloudmeet/signal/pkg/relay"
)

// Config represents signal server configuration
type Config struct {
	Host          string   `mapstructure:"host"`
	Port          int      `mapstructure:"port"`
	Cert          string   `mapstructure:"cert"`
	Key           string   `mapstructure:"key"`
	WebSocketPath string   `mapstructure:"path"`
	Origins       []string `mapstructure:"origins"`
}

// Server accepts websocket clients and feeds their events to the relay
type Server struct {
	conf   Config
	relay  *relay.Server
	closed chan bool
}

// NewServer creates a signal server instance
func NewServer(conf Config, rs *relay.Server) *Server {
	return &Server{
		conf:   conf,
		relay:  rs,
		closed: make(chan bool),
	}
}

// makeOriginFunc allows the configured browser origins; an empty list
// allows everything
func makeOriginFunc(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(r *http.Request) bool {
			return true
		}
	}
	allowed := map[string]struct{}{}
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// not a browser
			return true
		}
		if _, ok := allowed[origin]; !ok {
			log.Warnf("origin %s not allowed", origin)
			return false
		}
		return true
	}
}

// Handler upgrades one request to a websocket peer and holds it until
// either side goes away
func (s *Server) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin:     makeOriginFunc(s.conf.Origins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("upgrade websocket error: %v", err)
			return
		}
		defer ws.Close()

		p := newPeer(r.Context(), ws, s.relay)
		defer p.Close()
		log.Infof("peer connected: %s, connection=%s", r.RemoteAddr, p.rc.CID())

		select {
		case <-p.DisconnectNotify():
			log.Infof("peer disconnected: %s, connection=%s", r.RemoteAddr, p.rc.CID())
		case <-s.closed:
			log.Infof("server closed: disconnect peer %s", r.RemoteAddr)
		}
	})
}

// Serve blocks listening for websocket clients
func (s *Server) Serve() error {
	path := s.conf.WebSocketPath
	if path == "" {
		path = "/ws"
	}
	http.Handle(path, s.Handler())

	addr := s.conf.Host + ":" + strconv.Itoa(s.conf.Port)
	if s.conf.Cert == "" || s.conf.Key == "" {
		log.Infof("non-TLS WebSocketServer listening on: %s", addr)
		return http.ListenAndServe(addr, nil)
	}
	log.Infof("TLS WebSocketServer listening on: %s", addr)
	return http.ListenAndServeTLS(addr, s.conf.Cert, s.conf.Key, nil)
}

// Close disconnects every held peer
func (s *Server) Close() {
	close(s.closed)
}
