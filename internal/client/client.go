// Package client implements the interactive command-line front end: it
// turns user input lines into protocol requests and renders incoming
// events.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"chat-relay/internal/protocol"
)

type Client struct {
	conn io.ReadWriteCloser
	enc  *protocol.Encoder
	out  io.Writer

	mu       sync.Mutex
	roomID   string
	username string
	// set when a join is in flight, promoted on the joined reply
	pendingUser string
}

// Dial connects to a relay over framed TCP.
func Dial(addr string, out io.Writer) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "connected to %s\n", addr)
	return New(conn, out), nil
}

func New(conn io.ReadWriteCloser, out io.Writer) *Client {
	return &Client{
		conn: conn,
		enc:  protocol.NewEncoder(conn),
		out:  out,
	}
}

// Run renders server traffic and consumes input lines until the user exits
// or the connection drops.
func (c *Client) Run(input io.Reader) error {
	readerDone := make(chan error, 1)
	go func() {
		readerDone <- c.readLoop()
	}()

	lines := bufio.NewScanner(input)
	for lines.Scan() {
		if !c.handleLine(lines.Text()) {
			c.conn.Close()
			<-readerDone
			return nil
		}
		select {
		case err := <-readerDone:
			return err
		default:
		}
	}
	c.conn.Close()
	<-readerDone
	return lines.Err()
}

func (c *Client) readLoop() error {
	dec := protocol.NewDecoder(c.conn)
	for {
		env, err := dec.Decode()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(c.out, "server closed the connection")
				return nil
			}
			return err
		}
		c.render(env)
	}
}

func (c *Client) render(env *protocol.Envelope) {
	payload, err := env.Payload()
	if err != nil {
		fmt.Fprintf(c.out, "unreadable %s event: %v\n", env.Kind, err)
		return
	}

	switch body := payload.(type) {
	case *protocol.CreatedResponse:
		fmt.Fprintf(c.out, "created room %s\n", body.RoomID)
	case *protocol.JoinedResponse:
		c.mu.Lock()
		c.roomID = body.RoomID
		c.username = c.pendingUser
		c.mu.Unlock()
		fmt.Fprintf(c.out, "joined room %s\n", body.RoomID)
	case *protocol.ChatEvent:
		c.mu.Lock()
		me := c.username
		c.mu.Unlock()
		if body.Username == me {
			fmt.Fprintf(c.out, "you: %s\n", body.Text)
		} else {
			fmt.Fprintf(c.out, "%s: %s\n", body.Username, body.Text)
		}
	case *protocol.UserJoinedEvent:
		fmt.Fprintf(c.out, "* %s joined\n", body.Username)
	case *protocol.UserLeftEvent:
		fmt.Fprintf(c.out, "* %s left\n", body.Username)
	case *protocol.ErrorBody:
		fmt.Fprintf(c.out, "[server] %s: %s\n", body.Kind, body.Message)
	default:
		fmt.Fprintf(c.out, "unexpected %s from server\n", env.Kind)
	}
}

// handleLine executes one input line. It returns false when the client
// should exit.
func (c *Client) handleLine(line string) bool {
	cmd := parseLine(line)
	switch cmd.name {
	case "none":
		return true
	case "help":
		fmt.Fprintln(c.out, helpText)
	case "create":
		c.send(protocol.NewCreate(cmd.password))
	case "join":
		c.mu.Lock()
		joined := c.roomID != ""
		c.pendingUser = cmd.username
		c.mu.Unlock()
		if joined {
			fmt.Fprintln(c.out, "already in a room, /leave first")
			return true
		}
		c.send(protocol.NewJoin(cmd.roomID, cmd.username, cmd.password))
	case "send":
		c.mu.Lock()
		joined := c.roomID != ""
		c.mu.Unlock()
		if !joined {
			fmt.Fprintln(c.out, "you must /join a room before sending")
			return true
		}
		c.send(protocol.NewSend(cmd.text))
	case "leave":
		c.mu.Lock()
		joined := c.roomID != ""
		c.roomID = ""
		c.username = ""
		c.mu.Unlock()
		if !joined {
			fmt.Fprintln(c.out, "you are not in a room")
			return true
		}
		c.send(protocol.NewLeave())
		fmt.Fprintln(c.out, "left room")
	case "exit":
		c.send(protocol.NewExit())
		return false
	default:
		fmt.Fprintln(c.out, "invalid command, /help shows the syntax")
	}
	return true
}

func (c *Client) send(env *protocol.Envelope) {
	if err := c.enc.Encode(env); err != nil {
		fmt.Fprintf(c.out, "send failed: %v\n", err)
	}
}
