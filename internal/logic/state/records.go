package state

import (
	"fmt"

	"hydra-fanout-sol/internal/types"
)

// MembershipModel 决定 fanout 的分账指令变体，创建后不可变
type MembershipModel uint8

const (
	MembershipWallet MembershipModel = 0
	MembershipToken  MembershipModel = 1
	MembershipNFT    MembershipModel = 2
)

func (m MembershipModel) String() string {
	switch m {
	case MembershipWallet:
		return "Wallet"
	case MembershipToken:
		return "Token"
	case MembershipNFT:
		return "NFT"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Fanout 分账根账户。字段顺序即 borsh 布局，不可调整
type Fanout struct {
	Authority            types.Pubkey  `yaml:"authority"`
	Name                 string        `yaml:"name"`
	AccountKey           types.Pubkey  `yaml:"account_key"`
	TotalShares          uint64        `yaml:"total_shares"`
	TotalMembers         uint64        `yaml:"total_members"`
	TotalInflow          uint64        `yaml:"total_inflow"`
	LastSnapshotAmount   uint64        `yaml:"last_snapshot_amount"`
	BumpSeed             uint8         `yaml:"bump_seed"`
	AccountOwnerBumpSeed uint8         `yaml:"account_owner_bump_seed"`
	TotalAvailableShares uint64        `yaml:"total_available_shares"`
	MembershipModelRaw   uint8         `yaml:"membership_model"`
	MembershipMint       *types.Pubkey `yaml:"membership_mint"`
	TotalStakedShares    *uint64       `yaml:"total_staked_shares"`
}

func (f *Fanout) Model() MembershipModel {
	return MembershipModel(f.MembershipModelRaw)
}

// FanoutMint 某一币种在 fanout 下的子账本
type FanoutMint struct {
	Mint               types.Pubkey `yaml:"mint"`
	Fanout             types.Pubkey `yaml:"fanout"`
	TokenAccount       types.Pubkey `yaml:"token_account"` // holding account
	TotalInflow        uint64       `yaml:"total_inflow"`
	LastSnapshotAmount uint64       `yaml:"last_snapshot_amount"`
	BumpSeed           uint8        `yaml:"bump_seed"`
}

// FanoutMembershipVoucher 成员在 fanout 下的凭证
type FanoutMembershipVoucher struct {
	Fanout        types.Pubkey `yaml:"fanout"`
	TotalInflow   uint64       `yaml:"total_inflow"`
	LastInflow    uint64       `yaml:"last_inflow"`
	BumpSeed      uint8        `yaml:"bump_seed"`
	MembershipKey types.Pubkey `yaml:"membership_key"`
	Shares        uint64       `yaml:"shares"`
}

// FanoutMembershipMintVoucher 成员针对某个子账本的凭证，地址由 (fanout_mint, member, mint) 推导
type FanoutMembershipMintVoucher struct {
	Fanout     types.Pubkey `yaml:"fanout"`
	FanoutMint types.Pubkey `yaml:"fanout_mint"`
	LastInflow uint64       `yaml:"last_inflow"`
	BumpSeed   uint8        `yaml:"bump_seed"`
}
