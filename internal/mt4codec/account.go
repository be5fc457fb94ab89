package mt4codec

import (
	"encoding/binary"
)

// AccountInfo reports balance, equity, and identity for the authenticated
// login. The server's layout is not fully fixed across builds: several
// fields are read with a tolerant scan rather than a single offset, per
// the original client's handling of the same response.
type AccountInfo struct {
	Login    int32
	Balance  float64
	Equity   float64
	Currency string
	Leverage int32
	Server   string
	Name     string
	Company  string
}

// loginScanMin and loginScanMax bound the byte-by-byte fallback scan used
// when the login is not present at either of the two offsets usually seen
// in the wild.
const (
	loginScanMin = 1_000_000
	loginScanMax = 99_999_999
)

// preferredLoginOffsets are tried, in order, before falling back to the
// full scan.
var preferredLoginOffsets = []int{53, 49, 254, 255, 256, 257}

// DecodeAccountInfo parses an AccountInfo payload. It is heuristic by
// necessity: balance/equity and the login offset vary slightly by server
// build, so this mirrors the original client's tolerant approach rather
// than assuming one fixed layout.
func DecodeAccountInfo(b []byte) AccountInfo {
	info := AccountInfo{}

	if len(b) >= 9 {
		info.Balance = decodeFloat64(b[1:9])
	}
	if len(b) >= 17 {
		info.Equity = decodeFloat64(b[9:17])
	}
	if len(b) >= 49 {
		info.Currency = decodeUTF16LE(b[17:49])
	}
	if len(b) >= 53 {
		info.Leverage = int32(binary.LittleEndian.Uint32(b[49:53]))
	}
	if len(b) >= 186 {
		info.Server = decodeUTF16LE(b[58:186])
	}
	if len(b) >= 254 {
		info.Name = decodeASCII(b[190:254])
	}
	// Company has no reliable offset across server builds; the original
	// client leaves it empty too. Carried as a named field per spec §3
	// rather than dropped, for callers that parse it out of Name/Server
	// themselves on builds where it's embedded there.

	info.Login = findLoginValue(b)
	return info
}

// findLoginValue tries the known offsets first, then scans every 4-byte
// little-endian window for a value in the plausible login range.
func findLoginValue(b []byte) int32 {
	for _, off := range preferredLoginOffsets {
		if off+4 > len(b) {
			continue
		}
		v := int32(binary.LittleEndian.Uint32(b[off : off+4]))
		if v >= loginScanMin && v <= loginScanMax {
			return v
		}
	}
	for off := 0; off+4 <= len(b); off++ {
		v := int32(binary.LittleEndian.Uint32(b[off : off+4]))
		if v >= loginScanMin && v <= loginScanMax {
			return v
		}
	}
	return 0
}
