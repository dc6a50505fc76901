package stringutils

import (
	"encoding/hex"
	"os"
	"strings"
)

func ExpandTildePath(s string) string {
	if !strings.HasPrefix(s, "~") {
		return s
	}
	home, _ := os.UserHomeDir()
	return strings.Replace(s, "~", home, 1)
}

// Trim0x removes surrounding space and a leading 0x or 0X.
func Trim0x(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func HexToBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(Trim0x(hexStr))
}
