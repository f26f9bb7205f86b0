// Package protocol defines the chat relay's wire envelope and the
// length-prefixed framing used to carry it over a byte stream.
//
// Every frame is a 5-byte header (1 version byte, 4-byte big-endian body
// length) followed by the JSON-encoded envelope. The length prefix keeps
// arbitrary text inside JSON bodies from desynchronizing the stream.
package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	headerSize = 5

	// MaxFrameSize caps a single envelope body. A header announcing more
	// than this is rejected before any allocation happens.
	MaxFrameSize = 1 << 20
)

// ProtocolError marks a malformed frame. It is fatal for the connection
// that produced it; the stream is not resynchronized.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Decoder reads envelopes from a byte stream. Once a partial frame has been
// consumed the decoder is not restartable.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next frame. It returns io.EOF when the stream ends
// cleanly on a frame boundary and a *ProtocolError for any malformed frame.
func (d *Decoder) Decode() (*Envelope, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, &ProtocolError{Reason: "truncated frame header", Err: err}
		}
		return nil, err
	}

	if header[0] != Version {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unsupported protocol version %d", header[0])}
	}

	length := binary.BigEndian.Uint32(header[1:])
	if length == 0 {
		return nil, &ProtocolError{Reason: "zero-length frame"}
	}
	if length > MaxFrameSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame of %d bytes exceeds cap of %d", length, MaxFrameSize)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, &ProtocolError{Reason: "truncated frame body", Err: err}
	}

	return UnmarshalEnvelope(body)
}

// UnmarshalEnvelope parses one envelope from raw bytes, validating UTF-8
// and the kind tag. Used by the frame decoder and by transports that are
// already self-delimiting.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if !utf8.Valid(data) {
		return nil, &ProtocolError{Reason: "frame body is not valid UTF-8"}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Reason: "invalid envelope JSON", Err: err}
	}
	if !knownKinds[env.Kind] {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown envelope kind %q", env.Kind)}
	}
	return &env, nil
}

// Encoder writes framed envelopes to a byte stream.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode frames and writes a single envelope. Header and body go out in one
// Write call so concurrent writers on distinct encoders never interleave a
// frame with another stream's bytes.
func (e *Encoder) Encode(env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if len(body) > MaxFrameSize {
		return &ProtocolError{Reason: fmt.Sprintf("encoded frame of %d bytes exceeds cap of %d", len(body), MaxFrameSize)}
	}

	frame := make([]byte, headerSize+len(body))
	frame[0] = Version
	binary.BigEndian.PutUint32(frame[1:headerSize], uint32(len(body)))
	copy(frame[headerSize:], body)

	_, err = e.w.Write(frame)
	return err
}
