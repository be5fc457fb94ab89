package mt4

import (
	"time"

	"mt4adapter/internal/mt4codec"
)

// EventKind discriminates the payload carried by an Event.
type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventAuthenticated     EventKind = "authenticated"
	EventAuthFailed        EventKind = "auth_failed"
	EventAccountInfo       EventKind = "account_info"
	EventPositionsSnapshot EventKind = "positions_snapshot"
	EventHistoryOrders     EventKind = "history_orders"
	EventOrderUpdate       EventKind = "order_update"
	EventTradeSuccess      EventKind = "trade_success"
	EventTradeFailed       EventKind = "trade_failed"
	EventTradeTimeout      EventKind = "trade_timeout"
	EventPong              EventKind = "pong"
	EventDisconnected      EventKind = "disconnected"
	EventError             EventKind = "error"
	EventRawMessage        EventKind = "raw_message"
)

// Event is the single channel type consumers read from. Kind determines
// which of the payload fields is populated; unrelated fields are zero.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	AccountInfo mt4codec.AccountInfo
	Positions   []mt4codec.Order
	Orders      []mt4codec.Order
	OrderUpdate mt4codec.OrderUpdate
	Trade       TradeResult
	RequestID   int32
	AuthCode    uint8
	Elapsed     time.Duration
	Raw         RawMessage
	Err         error
}

// TradeResult reports the outcome of a TradeRequest once correlated with
// its TradeResponse. Status mirrors response.status verbatim (0 success,
// 1 accepted-pending) so callers can distinguish the two success shapes
// without re-deriving it from the event kind.
type TradeResult struct {
	RequestID int32
	Status    int32
	Ticket    int32
	Price     float64
	Orders    []mt4codec.Order
}

// RawMessage carries an inbound frame whose command this adapter does
// not decode into a dedicated event — surfaced verbatim rather than
// dropped, per spec.md §4.4 ("unknown commands surface as RawMessage").
type RawMessage struct {
	Command   Command
	ErrorCode uint8
	Data      []byte
}

func newEvent(kind EventKind) Event {
	return Event{Kind: kind, Timestamp: time.Now()}
}

func newConnectedEvent() Event {
	return newEvent(EventConnected)
}

func newAuthenticatedEvent() Event {
	return newEvent(EventAuthenticated)
}

func newAuthFailedEvent(code uint8) Event {
	e := newEvent(EventAuthFailed)
	e.AuthCode = code
	return e
}

func newAccountInfoEvent(info mt4codec.AccountInfo) Event {
	e := newEvent(EventAccountInfo)
	e.AccountInfo = info
	return e
}

func newPositionsSnapshotEvent(positions []mt4codec.Order) Event {
	e := newEvent(EventPositionsSnapshot)
	e.Positions = positions
	return e
}

func newHistoryOrdersEvent(orders []mt4codec.Order) Event {
	e := newEvent(EventHistoryOrders)
	e.Orders = orders
	return e
}

func newOrderUpdateEvent(u mt4codec.OrderUpdate) Event {
	e := newEvent(EventOrderUpdate)
	e.OrderUpdate = u
	return e
}

func newTradeSuccessEvent(result TradeResult) Event {
	e := newEvent(EventTradeSuccess)
	e.Trade = result
	e.RequestID = result.RequestID
	return e
}

func newTradeFailedEvent(requestID int32, err error) Event {
	e := newEvent(EventTradeFailed)
	e.RequestID = requestID
	e.Err = err
	return e
}

func newTradeTimeoutEvent(requestID int32, elapsed time.Duration, err error) Event {
	e := newEvent(EventTradeTimeout)
	e.RequestID = requestID
	e.Elapsed = elapsed
	e.Err = err
	return e
}

func newRawMessageEvent(command Command, errorCode uint8, data []byte) Event {
	e := newEvent(EventRawMessage)
	e.Raw = RawMessage{Command: command, ErrorCode: errorCode, Data: append([]byte(nil), data...)}
	return e
}

func newPongEvent() Event {
	return newEvent(EventPong)
}

func newDisconnectedEvent(err error) Event {
	e := newEvent(EventDisconnected)
	e.Err = err
	return e
}

func newErrorEvent(err error) Event {
	e := newEvent(EventError)
	e.Err = err
	return e
}
