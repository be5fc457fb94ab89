// Package mt4handshake drives the two-phase authentication handshake:
// token acquisition over HTTP, then session-key rotation and password
// submission over the freshly opened WebSocket.
//
// The state machine is split from the transport so it can be tested
// without a live socket — Driver depends only on a Sender function, the
// same dependency-injection shape used elsewhere in this codebase to
// keep protocol logic unit-testable.
package mt4handshake

import (
	"fmt"
)

// Phase enumerates handshake progress.
type Phase int

const (
	Disconnected Phase = iota
	TokenFetched
	Opened
	TokenSent
	PasswordSent
	Authenticated
	Closed
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case TokenFetched:
		return "token_fetched"
	case Opened:
		return "opened"
	case TokenSent:
		return "token_sent"
	case PasswordSent:
		return "password_sent"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sender transmits a plaintext command payload, encrypting it as the
// driver instructs (useAuthKey chooses which key the frame channel's
// cipher should apply).
type Sender func(command uint16, payload []byte, useAuthKey bool) error

// Driver tracks handshake phase transitions and builds the outbound
// packets for each step. It holds no network resources.
type Driver struct {
	phase    Phase
	send     Sender
	token    string
	password string
}

// New creates a Driver in the Disconnected phase.
func New(send Sender) *Driver {
	return &Driver{phase: Disconnected, send: send}
}

// Phase returns the current handshake phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

// OnTokenFetched records that the Token Service call succeeded and moves
// to TokenFetched. Call before OnSocketOpened.
func (d *Driver) OnTokenFetched(token, password string) {
	d.token = token
	d.password = password
	d.phase = TokenFetched
}

// OnSocketOpened sends the auth-token command and advances to TokenSent.
// It is invalid to call before OnTokenFetched.
func (d *Driver) OnSocketOpened() error {
	if d.phase != TokenFetched {
		return fmt.Errorf("mt4handshake: socket opened in phase %s, want %s", d.phase, TokenFetched)
	}
	d.phase = Opened
	if err := d.send(cmdAuthToken, encodeToken(d.token), true); err != nil {
		return fmt.Errorf("mt4handshake: send auth token: %w", err)
	}
	d.phase = TokenSent
	return nil
}

// OnAuthTokenReply handles the command-0 reply. errorCode nonzero means
// the token itself was rejected and the session must close; otherwise the
// driver sends the password packet under the session key (installed by
// the caller from the Token Service response before the socket was even
// opened, per spec.md §4.1/§4.3) and advances to PasswordSent.
func (d *Driver) OnAuthTokenReply(errorCode uint8) error {
	if d.phase != TokenSent {
		return fmt.Errorf("mt4handshake: auth-token reply in phase %s, want %s", d.phase, TokenSent)
	}
	if errorCode != 0 {
		d.phase = Closed
		return &AuthRejectedError{Code: errorCode}
	}
	if err := d.send(cmdAuthPassword, encodePassword(d.password), false); err != nil {
		return fmt.Errorf("mt4handshake: send password: %w", err)
	}
	d.phase = PasswordSent
	return nil
}

// OnAuthPasswordReply handles the command-1 reply. errorCode nonzero
// means authentication failed and the session must close.
func (d *Driver) OnAuthPasswordReply(errorCode uint8) error {
	if d.phase != PasswordSent {
		return fmt.Errorf("mt4handshake: auth-password reply in phase %s, want %s", d.phase, PasswordSent)
	}
	if errorCode != 0 {
		d.phase = Closed
		return &AuthRejectedError{Code: errorCode}
	}
	d.phase = Authenticated
	return nil
}

// Close marks the handshake as terminated, regardless of prior phase.
func (d *Driver) Close() {
	d.phase = Closed
}

// AuthRejectedError is returned by OnAuthTokenReply/OnAuthPasswordReply
// when the server rejects the credential with a nonzero error code.
type AuthRejectedError struct {
	Code uint8
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("mt4handshake: authentication rejected, code %d", e.Code)
}

const (
	cmdAuthToken    uint16 = 0
	cmdAuthPassword uint16 = 1
)

// tokenFieldSize is the fixed ASCII field the token command expects.
const tokenFieldSize = 64

// passwordFieldMaxChars bounds the password to 32 UTF-16 code units,
// encoded across a fixed 64-byte field.
const passwordFieldMaxChars = 32
const passwordFieldSize = passwordFieldMaxChars * 2

func encodeToken(token string) []byte {
	b := make([]byte, tokenFieldSize)
	n := copy(b, token)
	for i := n; i < len(b); i++ {
		b[i] = 0
	}
	return b
}

func encodePassword(password string) []byte {
	b := make([]byte, passwordFieldSize)
	runes := []rune(password)
	if len(runes) > passwordFieldMaxChars {
		runes = runes[:passwordFieldMaxChars]
	}
	for i, r := range runes {
		b[i*2] = byte(r)
		b[i*2+1] = byte(r >> 8)
	}
	return b
}
