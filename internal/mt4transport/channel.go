// Package mt4transport implements the duplex binary channel over a single
// WebSocket connection: an outbound writer queue and an inbound frame
// reader that strips the 8-byte outer header before handing ciphertext to
// the caller.
//
// Unlike the market-feed adaptation this package is grounded on, there is
// no reconnect/backoff loop here — reconnection policy is out of scope
// for this adapter, and a dropped connection simply ends the session.
package mt4transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout    = 10 * time.Second
	writeQueueDepth = 32
	outerHeaderSize = 8
)

// outerSequence is the constant second word of every outbound frame's
// outer header. The original build_packet writes 1 for every frame
// regardless of how many frames precede it — this is not a counter.
const outerSequence uint32 = 1

// Channel owns one WebSocket connection and frames payloads with the
// 4-byte-length + 4-byte-sequence outer header the server expects.
type Channel struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	outbound chan []byte

	logger *slog.Logger
}

// Dial opens the WebSocket connection at url and returns a Channel ready
// to Run.
func Dial(ctx context.Context, url string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("mt4transport: dial: %w", err)
	}
	return &Channel{
		conn:     conn,
		outbound: make(chan []byte, writeQueueDepth),
		logger:   slog.Default(),
	}, nil
}

// SetLogger overrides the default logger.
func (c *Channel) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Send enqueues ciphertext for writing, wrapping it in the outer header.
// It never blocks the caller past ctx's lifetime.
func (c *Channel) Send(ctx context.Context, ciphertext []byte) error {
	frame := c.frame(ciphertext)
	select {
	case c.outbound <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// frame prepends the 8-byte outer header: ciphertext length (u32 LE)
// followed by the constant sequence word (u32 LE) the server expects on
// every frame.
func (c *Channel) frame(ciphertext []byte) []byte {
	out := make([]byte, outerHeaderSize+len(ciphertext))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(ciphertext)))
	binary.LittleEndian.PutUint32(out[4:8], outerSequence)
	copy(out[outerHeaderSize:], ciphertext)
	return out
}

// Run drives the write pump and read loop until ctx is cancelled or the
// connection fails. dispatch receives the decrypted-ready ciphertext of
// each inbound frame, with the 8-byte outer header already stripped.
func (c *Channel) Run(ctx context.Context, dispatch func(ciphertext []byte)) error {
	done := make(chan error, 1)
	go c.writePump(ctx, done)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.close()
			return fmt.Errorf("mt4transport: read: %w", err)
		}
		if len(msg) < outerHeaderSize {
			c.logger.Warn("dropping undersized frame", "length", len(msg))
			continue
		}
		dispatch(msg[outerHeaderSize:])

		select {
		case <-ctx.Done():
			c.close()
			return ctx.Err()
		default:
		}
	}
}

func (c *Channel) writePump(ctx context.Context, done chan<- error) {
	for {
		select {
		case <-ctx.Done():
			done <- ctx.Err()
			return
		case frame := <-c.outbound:
			c.connMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
			c.connMu.Unlock()
			if err != nil {
				c.logger.Warn("write failed", "error", err)
				done <- err
				return
			}
		}
	}
}

func (c *Channel) close() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn.Close()
}

// Close closes the underlying connection immediately.
func (c *Channel) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn.Close()
}
