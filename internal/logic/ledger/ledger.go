package ledger

import (
	"context"

	"hydra-fanout-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// RawAccount 程序账户扫描结果，Data 为原始字节（已从 base64 解码）
type RawAccount struct {
	Address types.Pubkey
	Data    []byte
}

// AccountInfo 单账户查询结果
type AccountInfo struct {
	Address  types.Pubkey
	Owner    types.Pubkey
	Lamports uint64
	Data     []byte
}

// MemcmpFilter 在 offset 处做字节相等比较
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// ParentFilter 按回指字段筛选某个父账户下的记录
func ParentFilter(offset uint64, parent types.Pubkey) *MemcmpFilter {
	return &MemcmpFilter{Offset: offset, Bytes: append([]byte(nil), parent[:]...)}
}

type SendOptions struct {
	SkipPreflight bool
}

// Ledger 远端账本（Solana RPC）的最小能力集合。
// 所有调用都是阻塞的，实现方不做重试。
type Ledger interface {
	// GetAccount 账户不存在时返回 (nil, nil)
	GetAccount(ctx context.Context, addr types.Pubkey) (*AccountInfo, error)
	// GetProgramAccounts 按 dataSize（必选）与 memcmp（可选）过滤，返回顺序不作保证
	GetProgramAccounts(ctx context.Context, program types.Pubkey, dataSize uint64, filter *MemcmpFilter) ([]RawAccount, error)
	// SendAndConfirm 用最新 blockhash 组装、签名、提交交易并等待确认，返回交易签名
	SendAndConfirm(ctx context.Context, instructions []sdktypes.Instruction, opts SendOptions) (string, error)
}
