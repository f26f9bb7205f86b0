// Package server accepts client connections and hands each one to its own
// protocol session. Two transports are served: framed TCP and a websocket
// gateway speaking the same envelopes.
package server

import (
	"log"
	"net"

	"chat-relay/internal/rooms"
	"chat-relay/internal/session"
)

type Server struct {
	listenAddr string
	registry   *rooms.Registry
}

func New(listenAddr string, registry *rooms.Registry) *Server {
	return &Server{
		listenAddr: listenAddr,
		registry:   registry,
	}
}

// Run listens on the configured address and accepts connections until the
// listener fails.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	log.Printf("relay listening on %s", ln.Addr())
	return s.Serve(ln)
}

// Serve accepts connections from an existing listener. No connection cap is
// enforced here; a deployment that needs one wraps the listener.
func (s *Server) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveTCP(nc)
	}
}

func (s *Server) serveTCP(nc net.Conn) {
	incConnections("tcp")
	defer decConnections()

	session.New(newTCPConn(nc), s.registry).Run()
}
