package stringutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrim0x(t *testing.T) {
	assert.Equal(t, "dead", Trim0x("0xdead"))
	assert.Equal(t, "dead", Trim0x(" 0Xdead "))
	assert.Equal(t, "dead", Trim0x("dead"))
	assert.Equal(t, "", Trim0x("0x"))
	assert.Equal(t, "0", Trim0x("0"))
}

func TestHexToBytes(t *testing.T) {
	b, err := HexToBytes("0x00ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, b)

	_, err = HexToBytes("0xzz")
	assert.Error(t, err)
}

func TestExpandTildePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "certs"), ExpandTildePath("~/certs"))
	assert.Equal(t, "./certs", ExpandTildePath("./certs"))
}
