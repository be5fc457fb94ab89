// Package mt4codec implements the fixed-width little-endian binary records
// exchanged over the Web Terminal duplex channel. Every Decode function is
// total over its fixed-size input; every Encode function produces exactly
// the documented record length.
package mt4codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// OrderSize is the wire length of a single Order record.
const OrderSize = 161

// Order mirrors one ticket as reported by the server, either inside a
// positions snapshot or embedded in a TradeResponse/OrderUpdate.
type Order struct {
	Ticket     int32
	Symbol     string
	Digits     int32
	Type       int32
	Volume     int32 // centi-lots: server units are lots*100
	OpenTime   int64 // unix seconds
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	CloseTime  int64 // unix seconds, zero if still open
	ClosePrice float64
	Profit     float64
	Swap       float64
	Comment    string
	Commission float64
}

// DecodeOrder parses a 161-byte Order record. Field offsets are pinned to
// the wire layout; do not reorder without updating OrderSize callers.
func DecodeOrder(b []byte) (Order, error) {
	if len(b) < OrderSize {
		return Order{}, fmt.Errorf("mt4codec: order record too short: %d < %d", len(b), OrderSize)
	}
	o := Order{
		Ticket:     int32(binary.LittleEndian.Uint32(b[0:4])),
		Symbol:     decodeASCII(b[4:16]),
		Digits:     int32(binary.LittleEndian.Uint32(b[16:20])),
		Type:       int32(binary.LittleEndian.Uint32(b[20:24])),
		Volume:     int32(binary.LittleEndian.Uint32(b[24:28])),
		OpenTime:   int64(int32(binary.LittleEndian.Uint32(b[28:32]))),
		OpenPrice:  decodeFloat64(b[36:44]),
		StopLoss:   decodeFloat64(b[44:52]),
		TakeProfit: decodeFloat64(b[52:60]),
		CloseTime:  int64(int32(binary.LittleEndian.Uint32(b[60:64]))),
		ClosePrice: decodeFloat64(b[93:101]),
		Profit:     decodeFloat64(b[101:109]),
		Swap:       decodeFloat64(b[109:117]),
		Comment:    decodeASCII(b[121:153]),
		Commission: decodeFloat64(b[153:161]),
	}
	return o, nil
}

// EncodeOrder serializes an Order back into its 161-byte wire form. It is
// used by tests and by any path that must echo a server-shaped record
// (e.g. constructing fixtures); the live protocol never sends Order
// records client to server.
func EncodeOrder(o Order) []byte {
	b := make([]byte, OrderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(o.Ticket))
	encodeASCII(b[4:16], o.Symbol)
	binary.LittleEndian.PutUint32(b[16:20], uint32(o.Digits))
	binary.LittleEndian.PutUint32(b[20:24], uint32(o.Type))
	binary.LittleEndian.PutUint32(b[24:28], uint32(o.Volume))
	binary.LittleEndian.PutUint32(b[28:32], uint32(int32(o.OpenTime)))
	encodeFloat64(b[36:44], o.OpenPrice)
	encodeFloat64(b[44:52], o.StopLoss)
	encodeFloat64(b[52:60], o.TakeProfit)
	binary.LittleEndian.PutUint32(b[60:64], uint32(int32(o.CloseTime)))
	encodeFloat64(b[93:101], o.ClosePrice)
	encodeFloat64(b[101:109], o.Profit)
	encodeFloat64(b[109:117], o.Swap)
	encodeASCII(b[121:153], o.Comment)
	encodeFloat64(b[153:161], o.Commission)
	return b
}

func decodeASCII(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func encodeASCII(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func encodeFloat64(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

// decodeUTF16LE decodes a fixed-width little-endian UTF-16 field, trimming
// at the first NUL code unit.
func decodeUTF16LE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	runes := make([]rune, 0, len(units))
	for _, u := range units {
		runes = append(runes, rune(u))
	}
	return string(runes)
}

func encodeUTF16LE(dst []byte, s string) {
	i := 0
	for _, r := range s {
		if i+2 > len(dst) {
			break
		}
		binary.LittleEndian.PutUint16(dst[i:i+2], uint16(r))
		i += 2
	}
	for ; i < len(dst); i++ {
		dst[i] = 0
	}
}
