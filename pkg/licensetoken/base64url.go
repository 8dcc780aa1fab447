package licensetoken

import (
	"encoding/base64"
	"fmt"
	"strings"
)

var segmentEncoding = base64.RawURLEncoding.Strict()

// EncodeSegment base64url-encodes data without padding.
func EncodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeSegment reverses EncodeSegment. Only the URL-safe alphabet is
// accepted; correct trailing '=' padding is tolerated. Unused trailing bits
// must be zero, so every segment has exactly one accepted spelling.
func DecodeSegment(segment string) ([]byte, error) {
	unpadded := strings.TrimRight(segment, "=")
	if padding := len(segment) - len(unpadded); padding > 0 {
		if padding > 2 || len(segment)%4 != 0 {
			return nil, fmt.Errorf("illegal base64url padding")
		}
	}

	for i := 0; i < len(unpadded); i++ {
		if !isURLAlphabet(unpadded[i]) {
			return nil, fmt.Errorf("illegal base64url character %q at offset %d", unpadded[i], i)
		}
	}

	if len(unpadded)%4 == 1 {
		return nil, fmt.Errorf("illegal base64url length %d", len(unpadded))
	}
	return segmentEncoding.DecodeString(unpadded)
}

func isURLAlphabet(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
