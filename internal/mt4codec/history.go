package mt4codec

import "encoding/binary"

// HistoryRangeSize is the wire length of a history-orders range request.
const HistoryRangeSize = 8

// HistoryRange selects a closed time window for HistoryOrders.
type HistoryRange struct {
	Start int64 // unix seconds
	End   int64 // unix seconds
}

// EncodeHistoryRange serializes a HistoryRange into its 8-byte wire form:
// two little-endian unix-second timestamps truncated to 32 bits, matching
// the range the server accepts for history queries.
func EncodeHistoryRange(r HistoryRange) []byte {
	b := make([]byte, HistoryRangeSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(int32(r.Start)))
	binary.LittleEndian.PutUint32(b[4:8], uint32(int32(r.End)))
	return b
}

// DecodeHistoryRange reverses EncodeHistoryRange. Used by tests and by
// anything that needs to inspect a previously built request.
func DecodeHistoryRange(b []byte) (HistoryRange, error) {
	if len(b) < HistoryRangeSize {
		return HistoryRange{}, errShort("history range", len(b), HistoryRangeSize)
	}
	return HistoryRange{
		Start: int64(int32(binary.LittleEndian.Uint32(b[0:4]))),
		End:   int64(int32(binary.LittleEndian.Uint32(b[4:8]))),
	}, nil
}
