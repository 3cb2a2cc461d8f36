// Package uri implements the small set of string transforms the protocol
// adapters need: percent-decoding, ROT13, and ASCII path case-folding.
package uri

// PercentDecode replaces %HH triplets (HH two hex digits) with the decoded
// byte in a single left-to-right pass. A %-sequence that isn't followed by
// two valid hex digits is copied through verbatim, including the '%'.
func PercentDecode(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, hexVal(s[i+1])<<4|hexVal(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

// ROT13 rotates ASCII letters by 13 places; all other bytes pass through
// unchanged. It is its own inverse.
func ROT13(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = rot13Byte(s[i])
	}
	return string(out)
}

func rot13Byte(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z':
		return 'a' + (b-'a'+13)%26
	case b >= 'A' && b <= 'Z':
		return 'A' + (b-'A'+13)%26
	default:
		return b
	}
}

// FoldPath lowercases every byte of a path component. It is byte-wise ASCII
// folding, not Unicode-aware, matching the wire format's assumption that
// paths are plain ASCII.
func FoldPath(path string) string {
	out := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		b := path[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return string(out)
}

// Trim removes leading and trailing ASCII whitespace and CR/LF.
func Trim(s string) string {
	start := 0
	for start < len(s) && isSpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
