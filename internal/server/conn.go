package server

import (
	"net"
	"time"

	"chat-relay/internal/protocol"
	"chat-relay/internal/session"
)

// writeTimeout bounds a single frame write so a peer that stops reading
// cannot park the session's write loop indefinitely.
const writeTimeout = 10 * time.Second

// tcpConn adapts a raw TCP socket to the session.Conn interface using the
// length-prefixed frame codec.
type tcpConn struct {
	nc  net.Conn
	dec *protocol.Decoder
	enc *protocol.Encoder
}

func newTCPConn(nc net.Conn) session.Conn {
	return &tcpConn{
		nc:  nc,
		dec: protocol.NewDecoder(nc),
		enc: protocol.NewEncoder(nc),
	}
}

func (c *tcpConn) ReadEnvelope() (*protocol.Envelope, error) {
	return c.dec.Decode()
}

func (c *tcpConn) WriteEnvelope(env *protocol.Envelope) error {
	if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.enc.Encode(env)
}

func (c *tcpConn) Close() error {
	return c.nc.Close()
}

func (c *tcpConn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}
