// Package mt4errors defines the error taxonomy shared across the adapter.
//
// Errors are built with the standard wrapping idiom (fmt.Errorf("%w")) the
// way the rest of this codebase reports failures — there is no dedicated
// errors library here, only a small set of typed values so callers can
// switch on kind instead of matching strings.
package mt4errors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these for coarse-grained handling.
var (
	// ErrNotConnected is returned by operations issued before a session
	// reaches the Authenticated phase.
	ErrNotConnected = errors.New("mt4: not connected")

	// ErrCipherCorruption marks a single frame that failed to decrypt.
	// It is always recoverable — the frame is dropped, the session lives.
	ErrCipherCorruption = errors.New("mt4: cipher corruption")

	// ErrDecodeShort marks a frame too short or malformed for its command.
	// Like ErrCipherCorruption, this is per-frame and non-fatal.
	ErrDecodeShort = errors.New("mt4: short or malformed frame")

	// ErrServerRejected marks a Token Service rejection: non-2xx HTTP,
	// enabled=false, or a trade_server mismatch.
	ErrServerRejected = errors.New("mt4: server rejected token request")

	// ErrDuplicate is returned by TrySubmit when a ticket already has an
	// in-flight request. No frame is sent.
	ErrDuplicate = errors.New("mt4: duplicate request for ticket")

	// ErrTransport marks a fatal WebSocket I/O failure. The session must
	// be torn down; Disconnected is emitted.
	ErrTransport = errors.New("mt4: transport failure")
)

// AuthFailedError carries the server's authentication rejection code
// (the error_code from the command-1 reply). Terminates the session.
type AuthFailedError struct {
	Code uint8
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("mt4: authentication failed, code %d", e.Code)
}

// TradeRejectedError carries a trade error-code (response.status >= 2)
// and the human-readable message from the trade error-code table.
type TradeRejectedError struct {
	Code    int32
	Message string
}

func (e *TradeRejectedError) Error() string {
	return fmt.Sprintf("mt4: trade rejected: %s (code %d)", e.Message, e.Code)
}

// TradeTimeoutError is raised by the tracker sweeper for requests that
// outlived the timeout window without a correlated response.
type TradeTimeoutError struct {
	RequestID int32
}

func (e *TradeTimeoutError) Error() string {
	return fmt.Sprintf("mt4: trade request %d timed out", e.RequestID)
}

// InvalidParamsError wraps a caller-supplied argument that fails local
// validation before anything is sent to the server.
type InvalidParamsError struct {
	Field  string
	Reason string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("mt4: invalid %s: %s", e.Field, e.Reason)
}

// TradeMessage returns the human-readable message for a trade error code,
// per the table in spec §6. Unknown codes return "Unknown error".
func TradeMessage(code int32) string {
	if m, ok := tradeErrorMessages[code]; ok {
		return m
	}
	return "Unknown error"
}

var tradeErrorMessages = map[int32]string{
	0:   "Success",
	1:   "Request sent",
	2:   "Common error",
	3:   "Invalid parameters",
	4:   "Server busy",
	5:   "Old version",
	6:   "No connection",
	7:   "Not enough rights",
	8:   "Too frequent requests",
	64:  "Account disabled",
	65:  "Invalid account",
	66:  "Public key not found",
	128: "Trade timeout",
	129: "Invalid prices",
	130: "Invalid S/L or T/P",
	131: "Invalid volume",
	132: "Market is closed",
	133: "Trade is disabled",
	134: "Not enough money",
	135: "Price is changed",
	136: "Off quotes",
	137: "Broker is busy",
	138: "Requote",
	139: "Order is locked",
	140: "Only long positions allowed",
	141: "Too many requests",
	142: "Order accepted",
	143: "Order in process",
	144: "Request canceled",
	145: "Modification denied",
	146: "Trade context busy",
	147: "Expiration denied",
	148: "Too many orders",
	149: "Hedge prohibited",
	150: "FIFO rule violated",
}
