package mt4handshake

import (
	"encoding/binary"
	"errors"
	"testing"
)

type sentPacket struct {
	command    uint16
	payload    []byte
	useAuthKey bool
}

func TestHandshakeHappyPath(t *testing.T) {
	var sent []sentPacket
	d := New(func(command uint16, payload []byte, useAuthKey bool) error {
		sent = append(sent, sentPacket{command, payload, useAuthKey})
		return nil
	})

	d.OnTokenFetched("tok-123", "hunter2")
	if d.Phase() != TokenFetched {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), TokenFetched)
	}

	if err := d.OnSocketOpened(); err != nil {
		t.Fatalf("OnSocketOpened() error = %v", err)
	}
	if d.Phase() != TokenSent {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), TokenSent)
	}
	if len(sent) != 1 || sent[0].command != cmdAuthToken || !sent[0].useAuthKey {
		t.Fatalf("sent = %+v, want one auth-token packet under auth key", sent)
	}

	if err := d.OnAuthTokenReply(0); err != nil {
		t.Fatalf("OnAuthTokenReply() error = %v", err)
	}
	if d.Phase() != PasswordSent {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), PasswordSent)
	}
	if len(sent) != 2 || sent[1].command != cmdAuthPassword || sent[1].useAuthKey {
		t.Fatalf("sent = %+v, want second packet auth-password under session key", sent)
	}

	if err := d.OnAuthPasswordReply(0); err != nil {
		t.Fatalf("OnAuthPasswordReply() error = %v", err)
	}
	if d.Phase() != Authenticated {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), Authenticated)
	}
}

func TestHandshakeTokenRejected(t *testing.T) {
	d := New(func(uint16, []byte, bool) error { return nil })
	d.OnTokenFetched("tok", "pw")
	if err := d.OnSocketOpened(); err != nil {
		t.Fatalf("OnSocketOpened() error = %v", err)
	}

	err := d.OnAuthTokenReply(5)
	var rejected *AuthRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("OnAuthTokenReply() error = %v, want *AuthRejectedError", err)
	}
	if rejected.Code != 5 {
		t.Fatalf("rejected.Code = %d, want 5", rejected.Code)
	}
	if d.Phase() != Closed {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), Closed)
	}
}

func TestHandshakePasswordRejected(t *testing.T) {
	d := New(func(uint16, []byte, bool) error { return nil })
	d.OnTokenFetched("tok", "pw")
	d.OnSocketOpened()
	d.OnAuthTokenReply(0)

	err := d.OnAuthPasswordReply(3)
	var rejected *AuthRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("OnAuthPasswordReply() error = %v, want *AuthRejectedError", err)
	}
	if d.Phase() != Closed {
		t.Fatalf("Phase() = %s, want %s", d.Phase(), Closed)
	}
}

func TestHandshakeOutOfOrderTransitions(t *testing.T) {
	d := New(func(uint16, []byte, bool) error { return nil })
	if err := d.OnSocketOpened(); err == nil {
		t.Fatalf("OnSocketOpened() error = nil, want error before OnTokenFetched")
	}

	d.OnTokenFetched("tok", "pw")
	if err := d.OnAuthTokenReply(0); err == nil {
		t.Fatalf("OnAuthTokenReply() error = nil, want error before OnSocketOpened")
	}
}

func TestEncodeTokenPadding(t *testing.T) {
	b := encodeToken("short")
	if len(b) != tokenFieldSize {
		t.Fatalf("len(encodeToken()) = %d, want %d", len(b), tokenFieldSize)
	}
	if string(b[:5]) != "short" {
		t.Fatalf("encodeToken() prefix = %q, want short", b[:5])
	}
	for _, c := range b[5:] {
		if c != 0 {
			t.Fatalf("encodeToken() padding byte = %d, want 0", c)
		}
	}
}

func TestEncodePasswordUTF16(t *testing.T) {
	b := encodePassword("ab")
	if len(b) != passwordFieldSize {
		t.Fatalf("len(encodePassword()) = %d, want %d", len(b), passwordFieldSize)
	}
	if got := binary.LittleEndian.Uint16(b[0:2]); got != 'a' {
		t.Fatalf("first code unit = %d, want %d", got, 'a')
	}
	if got := binary.LittleEndian.Uint16(b[2:4]); got != 'b' {
		t.Fatalf("second code unit = %d, want %d", got, 'b')
	}
}

func TestEncodePasswordTruncatesAt32Chars(t *testing.T) {
	long := make([]rune, 40)
	for i := range long {
		long[i] = 'x'
	}
	b := encodePassword(string(long))
	if len(b) != passwordFieldSize {
		t.Fatalf("len(encodePassword()) = %d, want %d", len(b), passwordFieldSize)
	}
}
