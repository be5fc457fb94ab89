package mt4codec

import (
	"encoding/binary"
	"testing"
)

func TestEncodeTradeRequestRequestIDOffset(t *testing.T) {
	req := TradeRequest{
		Type:       0,
		Cmd:        2, // BuyLimit
		Ticket:     0,
		Symbol:     "GBPUSD",
		Volume:     100,
		Price:      1.25000,
		StopLoss:   0,
		TakeProfit: 0,
		Slippage:   3,
		Comment:    "open",
		Expiration: 0,
		RequestID:  1000,
	}
	b := EncodeTradeRequest(req)
	if len(b) != TradeRequestSize {
		t.Fatalf("EncodeTradeRequest() length = %d, want %d", len(b), TradeRequestSize)
	}
	// request_id sits at byte offset 91, 4 bytes little-endian.
	got := int32(binary.LittleEndian.Uint32(b[91:95]))
	if got != req.RequestID {
		t.Fatalf("request_id at offset 91 = %d, want %d", got, req.RequestID)
	}
}

func TestEncodeTradeRequestFieldLayout(t *testing.T) {
	req := TradeRequest{
		Type:      7,
		Cmd:       -1,
		Ticket:    99,
		Symbol:    "USDJPY",
		Volume:    50,
		RequestID: 1042,
	}
	b := EncodeTradeRequest(req)
	if b[0] != 7 {
		t.Fatalf("type byte = %d, want 7", b[0])
	}
	if got := int16(binary.LittleEndian.Uint16(b[1:3])); got != -1 {
		t.Fatalf("cmd at offset 1 = %d, want -1", got)
	}
	if got := int32(binary.LittleEndian.Uint32(b[3:7])); got != 99 {
		t.Fatalf("ticket at offset 3 = %d, want 99", got)
	}
	if got := decodeASCII(b[11:23]); got != "USDJPY" {
		t.Fatalf("symbol at offset 11 = %q, want USDJPY", got)
	}
}

func TestDecodeTradeResponseNoOrders(t *testing.T) {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint32(b[0:4], 1001)
	binary.LittleEndian.PutUint32(b[4:8], 0)
	resp, err := DecodeTradeResponse(b)
	if err != nil {
		t.Fatalf("DecodeTradeResponse() error = %v", err)
	}
	if resp.RequestID != 1001 || resp.Status != 0 {
		t.Fatalf("resp = %+v, want RequestID=1001 Status=0", resp)
	}
	if len(resp.Orders) != 0 {
		t.Fatalf("Orders length = %d, want 0", len(resp.Orders))
	}
}

func TestDecodeTradeResponseWithOrders(t *testing.T) {
	header := make([]byte, 24)
	binary.LittleEndian.PutUint32(header[0:4], 2002)
	binary.LittleEndian.PutUint32(header[4:8], 0)
	order := sampleOrder()
	b := append(header, EncodeOrder(order)...)

	resp, err := DecodeTradeResponse(b)
	if err != nil {
		t.Fatalf("DecodeTradeResponse() error = %v", err)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("Orders length = %d, want 1", len(resp.Orders))
	}
	if resp.Orders[0] != order {
		t.Fatalf("Orders[0] = %+v, want %+v", resp.Orders[0], order)
	}
}

func TestDecodeTradeResponseTooShort(t *testing.T) {
	if _, err := DecodeTradeResponse(make([]byte, 10)); err == nil {
		t.Fatalf("DecodeTradeResponse() error = nil, want error")
	}
}

func TestDecodeOrderUpdate(t *testing.T) {
	order := sampleOrder()
	header := make([]byte, 24)
	binary.LittleEndian.PutUint32(header[0:4], 55)
	binary.LittleEndian.PutUint32(header[4:8], 1)
	b := append(header, EncodeOrder(order)...)

	u, err := DecodeOrderUpdate(b)
	if err != nil {
		t.Fatalf("DecodeOrderUpdate() error = %v", err)
	}
	if u.NotifyID != 55 || u.NotifyType != 1 {
		t.Fatalf("u = %+v, want NotifyID=55 NotifyType=1", u)
	}
	if !u.IsCloseNotification() {
		t.Fatalf("IsCloseNotification() = false, want true for notify_type 1")
	}
	if u.Order != order {
		t.Fatalf("Order = %+v, want %+v", u.Order, order)
	}
}

func TestDecodeOrderUpdatesMultiple(t *testing.T) {
	one := buildOrderUpdateBytes(1, 0, sampleOrder())
	two := buildOrderUpdateBytes(2, 1, sampleOrder())
	all := append(append([]byte{}, one...), two...)

	updates, err := DecodeOrderUpdates(all)
	if err != nil {
		t.Fatalf("DecodeOrderUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("len(updates) = %d, want 2", len(updates))
	}
	if updates[0].NotifyID != 1 || updates[1].NotifyID != 2 {
		t.Fatalf("updates = %+v, want NotifyID 1 then 2", updates)
	}
}

func buildOrderUpdateBytes(notifyID, notifyType int32, order Order) []byte {
	header := make([]byte, 24)
	binary.LittleEndian.PutUint32(header[0:4], uint32(notifyID))
	binary.LittleEndian.PutUint32(header[4:8], uint32(notifyType))
	return append(header, EncodeOrder(order)...)
}
