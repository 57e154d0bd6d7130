package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

var ErrInvalidKeypair = errors.New("invalid keypair file")

// LoadKeypair 读取签名账户私钥。支持两种格式：
// - solana-keygen 生成的 JSON 数组（64 个 0~255 的整数）
// - 单行 base58 编码的 64 字节私钥
func LoadKeypair(path string) (sdktypes.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sdktypes.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	secret, err := ParseSecret(raw)
	if err != nil {
		return sdktypes.Account{}, fmt.Errorf("%s: %w", path, err)
	}
	acc, err := sdktypes.AccountFromBytes(secret)
	if err != nil {
		return sdktypes.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return acc, nil
}

func ParseSecret(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKeypair)
	}

	var secret []byte
	if raw[0] == '[' {
		// []byte 会被 encoding/json 当作 base64 字符串，这里必须按整数数组解析
		var ints []int
		if err := json.Unmarshal(raw, &ints); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
		}
		secret = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range: %d", ErrInvalidKeypair, i, v)
			}
			secret[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
		}
		secret = decoded
	}

	if len(secret) != 64 {
		return nil, fmt.Errorf("%w: got %d bytes, want 64", ErrInvalidKeypair, len(secret))
	}
	return secret, nil
}
