package distribute

import (
	"context"
	"fmt"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/tools"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

// BuildError 分账交易组装或提交失败，只影响当前成员
type BuildError struct {
	Model   string
	Voucher types.Pubkey
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("distribute %s voucher=%s: %v", e.Model, e.Voucher, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Targets 一次分账涉及的已解析账户
type Targets struct {
	Fanout         types.Pubkey // fanout 根账户
	FanoutMint     types.Pubkey // fanout_for_mint 子账本地址
	Mint           types.Pubkey // 子账本对应币种
	HoldingAccount types.Pubkey // 子账本 token_account
	Voucher        types.Pubkey // membership voucher 地址
	Member         types.Pubkey // voucher.membership_key
	MintVoucher    types.Pubkey // fanout_for_mint_membership_voucher (PDA)
	PayoutAccount  types.Pubkey // ATA(member, mint)，收款账户
}

// Programs 指令引用的程序 / sysvar 地址
type Programs struct {
	Hydra  types.Pubkey
	System types.Pubkey
	Token  types.Pubkey
	Rent   types.Pubkey
}

func DefaultPrograms(hydra types.Pubkey) Programs {
	return Programs{
		Hydra:  hydra,
		System: consts.SystemProgram,
		Token:  consts.TokenProgram,
		Rent:   consts.SysvarRent,
	}
}

type meta struct {
	key      types.Pubkey
	signer   bool
	writable bool
}

func w(k types.Pubkey) meta  { return meta{key: k, writable: true} }
func ro(k types.Pubkey) meta { return meta{key: k} }

// 账户顺序与链上 Accounts 结构体声明顺序一致
func (WalletPlan) accounts(payer types.Pubkey, t Targets, p Programs) []meta {
	return []meta{
		{key: payer, signer: true, writable: true},
		w(t.Member),
		w(t.Voucher),
		w(t.Fanout),
		w(t.HoldingAccount),
		w(t.FanoutMint),
		w(t.MintVoucher),
		ro(t.Mint),
		w(t.PayoutAccount),
		ro(p.System),
		ro(p.Rent),
		ro(p.Token),
	}
}

func (tp TokenPlan) accounts(payer types.Pubkey, t Targets, p Programs) []meta {
	return []meta{
		{key: payer, signer: true, writable: true},
		w(t.Member),
		w(tp.MemberTokenAccount),
		w(t.Voucher),
		w(t.Fanout),
		w(t.HoldingAccount),
		w(t.FanoutMint),
		w(t.MintVoucher),
		ro(t.Mint),
		w(t.PayoutAccount),
		ro(p.System),
		ro(p.Rent),
		ro(p.Token),
		w(tp.MembershipMint),
		w(tp.MemberStakeAccount),
	}
}

func (np NFTPlan) accounts(payer types.Pubkey, t Targets, p Programs) []meta {
	return []meta{
		{key: payer, signer: true, writable: true},
		w(t.Member),
		ro(np.MemberTokenAccount),
		ro(np.MembershipKey),
		w(t.Voucher),
		w(t.Fanout),
		w(t.HoldingAccount),
		w(t.FanoutMint),
		w(t.MintVoucher),
		ro(t.Mint),
		w(t.PayoutAccount),
		ro(p.System),
		ro(p.Rent),
		ro(p.Token),
	}
}

// distributeArgs 三种变体共用的参数；本工具总是按单币种分账
type distributeArgs struct {
	DistributeForMint bool
}

// Builder 组装并提交分账交易
type Builder struct {
	ledger   ledger.Ledger
	payer    types.Pubkey
	programs Programs
}

func NewBuilder(l ledger.Ledger, payer types.Pubkey, programs Programs) *Builder {
	return &Builder{ledger: l, payer: payer, programs: programs}
}

// Instruction 只组装不提交
func (b *Builder) Instruction(t Targets, plan Plan) (sdktypes.Instruction, error) {
	args, err := borsh.Serialize(distributeArgs{DistributeForMint: true})
	if err != nil {
		return sdktypes.Instruction{}, fmt.Errorf("encode distribute args: %w", err)
	}
	disc := tools.InstructionDiscriminator(plan.instructionName())
	data := make([]byte, 0, len(disc)+len(args))
	data = append(data, disc[:]...)
	data = append(data, args...)

	metas := plan.accounts(b.payer, t, b.programs)
	accounts := make([]sdktypes.AccountMeta, 0, len(metas))
	for _, m := range metas {
		accounts = append(accounts, sdktypes.AccountMeta{
			PubKey:     m.key.ToCommon(),
			IsSigner:   m.signer,
			IsWritable: m.writable,
		})
	}

	return sdktypes.Instruction{
		ProgramID: b.programs.Hydra.ToCommon(),
		Accounts:  accounts,
		Data:      data,
	}, nil
}

// Build 组装后关闭预检提交（链上程序的校验为准），等待确认并返回签名。失败不重发。
func (b *Builder) Build(ctx context.Context, t Targets, plan Plan) (string, error) {
	if plan == nil {
		return "", &BuildError{Model: "nil", Voucher: t.Voucher, Err: ErrUnknownMembershipModel}
	}
	model := plan.Model().String()

	ix, err := b.Instruction(t, plan)
	if err != nil {
		return "", &BuildError{Model: model, Voucher: t.Voucher, Err: err}
	}

	sig, err := b.ledger.SendAndConfirm(ctx, []sdktypes.Instruction{ix}, ledger.SendOptions{SkipPreflight: true})
	if err != nil {
		return sig, &BuildError{Model: model, Voucher: t.Voucher, Err: err}
	}
	logger.Infof("[Builder] distribute %s 成功: voucher=%s member=%s mint=%s, sig=%s",
		model, t.Voucher, t.Member, t.Mint, sig)
	return sig, nil
}
