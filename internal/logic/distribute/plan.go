package distribute

import (
	"errors"
	"fmt"

	"hydra-fanout-sol/internal/logic/state"
	"hydra-fanout-sol/internal/types"
)

var (
	ErrMissingMembershipMint  = errors.New("token membership model requires a membership mint")
	ErrUnknownMembershipModel = errors.New("unknown membership model")
)

// Plan 分账指令变体（Wallet / Token / NFT）。接口只能在本包实现，
// 新增成员模型必须同时实现 accounts，否则编译不过。
type Plan interface {
	Model() state.MembershipModel
	instructionName() string
	accounts(payer types.Pubkey, t Targets, p Programs) []meta
}

// WalletPlan 按钱包分账：不涉及成员的 membership 代币账户
type WalletPlan struct{}

// TokenPlan 按质押代币分账
type TokenPlan struct {
	MembershipMint     types.Pubkey
	MemberTokenAccount types.Pubkey // ATA(member, membership mint)
	MemberStakeAccount types.Pubkey // ATA(voucher, membership mint)
}

// NFTPlan 按 NFT 分账
type NFTPlan struct {
	MemberTokenAccount types.Pubkey
	MembershipKey      types.Pubkey
}

func (WalletPlan) Model() state.MembershipModel { return state.MembershipWallet }
func (TokenPlan) Model() state.MembershipModel  { return state.MembershipToken }
func (NFTPlan) Model() state.MembershipModel    { return state.MembershipNFT }

func (WalletPlan) instructionName() string { return "process_distribute_wallet" }
func (TokenPlan) instructionName() string  { return "process_distribute_token" }
func (NFTPlan) instructionName() string    { return "process_distribute_nft" }

// MemberAccounts 成员在 membership mint 下的辅助账户，fanout 没有 membership mint 时为 nil
type MemberAccounts struct {
	TokenAccount *types.Pubkey
	StakeAccount *types.Pubkey
}

// NewPlan 按 fanout 的成员模型选择变体。Token 模型缺 membership mint 时直接失败，不会走到提交。
func NewPlan(model state.MembershipModel, membershipMint *types.Pubkey, member types.Pubkey, acc MemberAccounts) (Plan, error) {
	switch model {
	case state.MembershipWallet:
		return WalletPlan{}, nil
	case state.MembershipToken:
		if membershipMint == nil || membershipMint.IsZero() {
			return nil, ErrMissingMembershipMint
		}
		return TokenPlan{
			MembershipMint:     *membershipMint,
			MemberTokenAccount: orZero(acc.TokenAccount),
			MemberStakeAccount: orZero(acc.StakeAccount),
		}, nil
	case state.MembershipNFT:
		return NFTPlan{
			MemberTokenAccount: orZero(acc.TokenAccount),
			MembershipKey:      member,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMembershipModel, model)
	}
}

func orZero(p *types.Pubkey) types.Pubkey {
	if p == nil {
		return types.Pubkey{}
	}
	return *p
}
