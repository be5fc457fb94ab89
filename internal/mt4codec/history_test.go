package mt4codec

import "testing"

func TestHistoryRangeRoundTrip(t *testing.T) {
	want := HistoryRange{Start: 1690000000, End: 1700000000}
	b := EncodeHistoryRange(want)
	if len(b) != HistoryRangeSize {
		t.Fatalf("EncodeHistoryRange() length = %d, want %d", len(b), HistoryRangeSize)
	}
	got, err := DecodeHistoryRange(b)
	if err != nil {
		t.Fatalf("DecodeHistoryRange() error = %v", err)
	}
	if got != want {
		t.Fatalf("DecodeHistoryRange() = %+v, want %+v", got, want)
	}
}

func TestDecodeHistoryRangeTooShort(t *testing.T) {
	if _, err := DecodeHistoryRange(make([]byte, 4)); err == nil {
		t.Fatalf("DecodeHistoryRange() error = nil, want error")
	}
}
