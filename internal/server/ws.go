package server

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/internal/protocol"
	"chat-relay/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn adapts a websocket connection to the session engine. Websocket
// messages are already self-delimiting, so each text message carries one
// JSON envelope with no frame header.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadEnvelope() (*protocol.Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure) {
			return nil, io.EOF
		}
		return nil, err
	}
	return protocol.UnmarshalEnvelope(data)
}

func (c *wsConn) WriteEnvelope(env *protocol.Envelope) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ServeWS upgrades an HTTP request and services it as a relay session.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(protocol.MaxFrameSize)

	incConnections("ws")
	defer decConnections()

	session.New(&wsConn{conn: conn}, s.registry).Run()
}
