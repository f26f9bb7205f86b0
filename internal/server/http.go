package server

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer hosts the websocket gateway and the Prometheus scrape endpoint
// next to the TCP relay.
type HTTPServer struct {
	listenAddr string
	relay      *Server
}

func NewHTTPServer(listenAddr string, relay *Server) *HTTPServer {
	return &HTTPServer{
		listenAddr: listenAddr,
		relay:      relay,
	}
}

func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.relay.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (h *HTTPServer) Run() {
	log.Printf("http listening on %s (/ws, /metrics)", h.listenAddr)
	if err := http.ListenAndServe(h.listenAddr, h.Handler()); err != nil {
		log.Printf("http server stopped: %v", err)
	}
}
