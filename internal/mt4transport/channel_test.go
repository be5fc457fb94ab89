package mt4transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func TestFrameHeaderLayout(t *testing.T) {
	c := &Channel{outbound: make(chan []byte, 1)}
	ciphertext := []byte{0xAA, 0xBB, 0xCC}
	frame := c.frame(ciphertext)
	if len(frame) != outerHeaderSize+len(ciphertext) {
		t.Fatalf("frame length = %d, want %d", len(frame), outerHeaderSize+len(ciphertext))
	}
	if frame[0] != 3 || frame[1] != 0 || frame[2] != 0 || frame[3] != 0 {
		t.Fatalf("length header = %v, want [3 0 0 0]", frame[0:4])
	}
	if frame[4] != 1 || frame[5] != 0 || frame[6] != 0 || frame[7] != 0 {
		t.Fatalf("sequence header = %v, want [1 0 0 0]", frame[4:8])
	}
}

func TestFrameSequenceConstantAcrossCalls(t *testing.T) {
	c := &Channel{outbound: make(chan []byte, 2)}
	first := c.frame([]byte{0x01})
	second := c.frame([]byte{0x02})
	if first[4] != 1 || second[4] != 1 {
		t.Fatalf("sequence words = %d, %d, want constant 1 on every frame", first[4], second[4])
	}
}

func TestChannelSendAndRun(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server upgrade error = %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg

		echo := append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, []byte("reply")...)
		conn.WriteMessage(websocket.BinaryMessage, echo)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	dispatched := make(chan []byte, 1)
	go ch.Run(ctx, func(ciphertext []byte) {
		dispatched <- ciphertext
	})

	if err := ch.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-received:
		if len(msg) < outerHeaderSize {
			t.Fatalf("server received undersized frame: %d bytes", len(msg))
		}
		if string(msg[outerHeaderSize:]) != "hello" {
			t.Fatalf("server payload = %q, want hello", msg[outerHeaderSize:])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server to receive frame")
	}

	select {
	case payload := <-dispatched:
		if string(payload) != "reply" {
			t.Fatalf("dispatched payload = %q, want reply", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func TestChannelRunDropsUndersizedFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		conn.WriteMessage(websocket.BinaryMessage, append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, []byte("ok")...))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	dispatched := make(chan []byte, 1)
	go ch.Run(ctx, func(ciphertext []byte) {
		dispatched <- ciphertext
	})

	select {
	case payload := <-dispatched:
		if string(payload) != "ok" {
			t.Fatalf("dispatched payload = %q, want ok (undersized frame should be skipped)", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}
