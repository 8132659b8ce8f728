package dtlex

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeSource prepares raw bytes from the byte-source provider (§1.b of
// spec.md) for scanning: it strips a UTF-8 BOM if present, and falls back
// to a best-effort Windows-1252 decode for byte sequences that are not
// valid UTF-8 (some editors save .keymap files in a legacy codepage).
// Mirrors internal/regtext's decodeInputToBytes/charmap fallback in the
// teacher, adapted from "pick an explicit encoding" to "best-effort
// recover from whatever bytes we were handed", since .keymap files carry
// no encoding declaration the way .reg files carry "Windows Registry
// Editor Version 5.00" headers with an optional BOM convention.
func DecodeSource(data []byte) []byte {
	if len(data) >= len(utf8BOM) && string(data[:len(utf8BOM)]) == string(utf8BOM) {
		data = data[len(utf8BOM):]
	}
	if isValidUTF8(data) {
		return data
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return data
	}
	return decoded
}

func isValidUTF8(b []byte) bool {
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			i++
		case c&0xE0 == 0xC0:
			if !continuationValid(b, i, 1) {
				return false
			}
			i += 2
		case c&0xF0 == 0xE0:
			if !continuationValid(b, i, 2) {
				return false
			}
			i += 3
		case c&0xF8 == 0xF0:
			if !continuationValid(b, i, 3) {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

func continuationValid(b []byte, start, n int) bool {
	if start+n >= len(b) {
		return false
	}
	for k := 1; k <= n; k++ {
		if b[start+k]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
