package derive

import (
	"errors"
	"fmt"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

// 单个 seed 最长 32 字节（链上 MAX_SEED_LEN）
const maxSeedLen = 32

var ErrInvalidSeed = errors.New("invalid pda seed")

// Derived 程序派生地址及其 bump
type Derived struct {
	Address types.Pubkey
	Bump    uint8
}

// Deriver 计算挂在某个程序下的确定性地址，无 I/O、无状态
type Deriver struct {
	programID types.Pubkey
}

func NewDeriver(programID types.Pubkey) *Deriver {
	return &Deriver{programID: programID}
}

func (d *Deriver) ProgramID() types.Pubkey {
	return d.programID
}

// Derive 以 [seedLabel, subLedger, member, asset] 为种子求 PDA，
// 相同输入任意次调用结果一致。
func (d *Deriver) Derive(seedLabel string, subLedger, member, asset types.Pubkey) (Derived, error) {
	if seedLabel == "" || len(seedLabel) > maxSeedLen {
		return Derived{}, fmt.Errorf("%w: label length %d", ErrInvalidSeed, len(seedLabel))
	}
	seeds := [][]byte{
		[]byte(seedLabel),
		subLedger[:],
		member[:],
		asset[:],
	}
	addr, bump, err := common.FindProgramAddress(seeds, d.programID.ToCommon())
	if err != nil {
		return Derived{}, fmt.Errorf("%w: find program address: %v", ErrInvalidSeed, err)
	}
	return Derived{Address: types.FromCommon(addr), Bump: bump}, nil
}

// MintVoucher 推导 FanoutMembershipMintVoucher 地址
func (d *Deriver) MintVoucher(fanoutMint, member, mint types.Pubkey) (Derived, error) {
	return d.Derive(consts.MembershipSeed, fanoutMint, member, mint)
}
