package mt4codec

import (
	"encoding/binary"
	"fmt"
)

// TradeRequestSize is the wire length of an encoded TradeRequest.
const TradeRequestSize = 95

// OrderUpdateSize is the wire length of a single OrderUpdate record.
const OrderUpdateSize = 185

// TradeRequest is the outbound record for every order-affecting operation:
// open, modify, close, cancel. The server distinguishes the operation via
// Type/Cmd, not a separate command id.
type TradeRequest struct {
	Type        uint8
	Cmd         int16 // order type: Buy, Sell, BuyLimit, ... or trade action
	Ticket      int32 // zero for new orders, existing ticket for modify/close
	Symbol      string
	Volume      int32 // centi-lots
	Price       float64
	StopLoss    float64
	TakeProfit  float64
	Slippage    int32
	Comment     string
	Expiration  int32 // unix seconds, zero for none
	RequestID   int32 // correlates TradeResponse back to this request
}

// EncodeTradeRequest serializes a TradeRequest into its 95-byte wire form.
// RequestID sits at offset 91 — this is the field the tracker correlates
// responses against, and the one offset in this package most worth
// pinning with a dedicated test.
func EncodeTradeRequest(r TradeRequest) []byte {
	b := make([]byte, TradeRequestSize)
	b[0] = r.Type
	binary.LittleEndian.PutUint16(b[1:3], uint16(r.Cmd))
	binary.LittleEndian.PutUint32(b[3:7], uint32(r.Ticket))
	binary.LittleEndian.PutUint32(b[7:11], 0) // unknown/reserved
	encodeASCII(b[11:23], r.Symbol)
	binary.LittleEndian.PutUint32(b[23:27], uint32(r.Volume))
	encodeFloat64(b[27:35], r.Price)
	encodeFloat64(b[35:43], r.StopLoss)
	encodeFloat64(b[43:51], r.TakeProfit)
	binary.LittleEndian.PutUint32(b[51:55], uint32(r.Slippage))
	encodeASCII(b[55:87], r.Comment)
	binary.LittleEndian.PutUint32(b[87:91], uint32(r.Expiration))
	binary.LittleEndian.PutUint32(b[91:95], uint32(r.RequestID))
	return b
}

// TradeResponse is the reply to a TradeRequest. Status 0 means success;
// non-zero is a trade error code from the table in mt4errors. Orders
// carries zero or more embedded Order records starting at offset 24.
type TradeResponse struct {
	RequestID int32
	Status    int32
	Price1    float64
	Price2    float64
	Orders    []Order
}

// DecodeTradeResponse parses a TradeResponse. The embedded Order list
// length is derived from the remaining buffer length, stepping by
// OrderSize; a short trailing remainder is ignored rather than erroring,
// since the server is not guaranteed to pad to a full record.
func DecodeTradeResponse(b []byte) (TradeResponse, error) {
	const headerSize = 24
	if len(b) < headerSize {
		return TradeResponse{}, errShort("trade response", len(b), headerSize)
	}
	resp := TradeResponse{
		RequestID: int32(binary.LittleEndian.Uint32(b[0:4])),
		Status:    int32(binary.LittleEndian.Uint32(b[4:8])),
		Price1:    decodeFloat64(b[8:16]),
		Price2:    decodeFloat64(b[16:24]),
	}
	rest := b[headerSize:]
	for off := 0; off+OrderSize <= len(rest); off += OrderSize {
		o, err := DecodeOrder(rest[off : off+OrderSize])
		if err != nil {
			return TradeResponse{}, err
		}
		resp.Orders = append(resp.Orders, o)
	}
	return resp, nil
}

// OrderUpdate is an unsolicited push notifying the client of a change to
// one ticket: a new fill, a modification, or a close.
type OrderUpdate struct {
	NotifyID   int32
	NotifyType int32
	DF         float64
	XH         float64
	Order      Order
}

// IsCloseNotification reports whether this update represents the ticket
// closing, per the server's notify_type convention.
func (u OrderUpdate) IsCloseNotification() bool {
	return u.NotifyType == 1
}

// DecodeOrderUpdate parses a single 185-byte OrderUpdate record.
func DecodeOrderUpdate(b []byte) (OrderUpdate, error) {
	if len(b) < OrderUpdateSize {
		return OrderUpdate{}, errShort("order update", len(b), OrderUpdateSize)
	}
	order, err := DecodeOrder(b[24:OrderUpdateSize])
	if err != nil {
		return OrderUpdate{}, err
	}
	return OrderUpdate{
		NotifyID:   int32(binary.LittleEndian.Uint32(b[0:4])),
		NotifyType: int32(binary.LittleEndian.Uint32(b[4:8])),
		DF:         decodeFloat64(b[8:16]),
		XH:         decodeFloat64(b[16:24]),
		Order:      order,
	}, nil
}

// DecodeOrderUpdates splits a buffer into consecutive 185-byte records,
// the shape the server uses to push one or more updates in a single
// command-10 frame.
func DecodeOrderUpdates(b []byte) ([]OrderUpdate, error) {
	var updates []OrderUpdate
	for off := 0; off+OrderUpdateSize <= len(b); off += OrderUpdateSize {
		u, err := DecodeOrderUpdate(b[off : off+OrderUpdateSize])
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func errShort(what string, got, want int) error {
	return &shortRecordError{what: what, got: got, want: want}
}

type shortRecordError struct {
	what      string
	got, want int
}

func (e *shortRecordError) Error() string {
	return fmt.Sprintf("mt4codec: %s too short: %d < %d", e.what, e.got, e.want)
}
