package mt4codec

import (
	"encoding/binary"
	"testing"
)

func TestDecodeAccountInfoPreferredOffset(t *testing.T) {
	b := make([]byte, 260)
	encodeFloat64(b[1:9], 10000.50)
	encodeFloat64(b[9:17], 10250.75)
	encodeUTF16LE(b[17:49], "USD")
	binary.LittleEndian.PutUint32(b[49:53], 500)
	binary.LittleEndian.PutUint32(b[53:57], 1234567) // login at preferred offset 53

	info := DecodeAccountInfo(b)
	if info.Balance != 10000.50 {
		t.Fatalf("Balance = %v, want 10000.50", info.Balance)
	}
	if info.Equity != 10250.75 {
		t.Fatalf("Equity = %v, want 10250.75", info.Equity)
	}
	if info.Currency != "USD" {
		t.Fatalf("Currency = %q, want USD", info.Currency)
	}
	if info.Leverage != 500 {
		t.Fatalf("Leverage = %d, want 500", info.Leverage)
	}
	if info.Login != 1234567 {
		t.Fatalf("Login = %d, want 1234567", info.Login)
	}
}

func TestDecodeAccountInfoFallbackScan(t *testing.T) {
	b := make([]byte, 120)
	// No login at any preferred offset; place it somewhere the full scan
	// must discover, at offset 80.
	binary.LittleEndian.PutUint32(b[80:84], 9_999_999)

	info := DecodeAccountInfo(b)
	if info.Login != 9_999_999 {
		t.Fatalf("Login = %d, want 9_999_999 (fallback scan)", info.Login)
	}
}

func TestDecodeAccountInfoNoLoginFound(t *testing.T) {
	b := make([]byte, 64) // all zero, nothing in the plausible range
	info := DecodeAccountInfo(b)
	if info.Login != 0 {
		t.Fatalf("Login = %d, want 0 when nothing matches", info.Login)
	}
}

func TestDecodeAccountInfoShortBuffer(t *testing.T) {
	info := DecodeAccountInfo(make([]byte, 4))
	if info.Balance != 0 || info.Login != 0 {
		t.Fatalf("info = %+v, want zero value for tiny buffer", info)
	}
}
