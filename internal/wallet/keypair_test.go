package wallet

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func intArray(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestLoadKeypair_JSONArray(t *testing.T) {
	want := sdktypes.NewAccount()
	path := writeFile(t, intArray(want.PrivateKey)+"\n")

	got, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, want.PublicKey, got.PublicKey)
}

func TestLoadKeypair_Base58(t *testing.T) {
	want := sdktypes.NewAccount()
	path := writeFile(t, base58.Encode(want.PrivateKey))

	got, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, want.PublicKey, got.PublicKey)
}

func TestLoadKeypair_Invalid(t *testing.T) {
	_, err := LoadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	cases := map[string]string{
		"empty":      "  ",
		"short":      "[1,2,3]",
		"range":      "[" + strings.Repeat("1,", 63) + "256]",
		"bad json":   "[1,2,",
		"bad base58": "0OIl",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadKeypair(writeFile(t, content))
			assert.ErrorIs(t, err, ErrInvalidKeypair)
		})
	}
}
