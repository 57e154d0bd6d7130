package provision

import (
	"context"
	"fmt"

	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/tools"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	ata "github.com/blocto/solana-go-sdk/program/associated_token_account"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// ProvisionError 关联代币账户查询或创建失败，只影响当前成员
type ProvisionError struct {
	Owner   types.Pubkey
	Mint    types.Pubkey
	Address types.Pubkey
	Err     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision ata owner=%s mint=%s ata=%s: %v", e.Owner, e.Mint, e.Address, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Result Ensure 的结果，Created 表示本次调用实际发起了创建
type Result struct {
	Address   types.Pubkey
	Created   bool
	Signature string
}

// Provisioner 保证 (owner, mint) 的关联代币账户存在，payer 承担租金
type Provisioner struct {
	ledger ledger.Ledger
	payer  types.Pubkey
}

func NewProvisioner(l ledger.Ledger, payer types.Pubkey) *Provisioner {
	return &Provisioner{ledger: l, payer: payer}
}

// Derive 按 ATA 程序规则计算 (owner, mint) 的关联代币账户地址，纯计算
func Derive(owner, mint types.Pubkey) (types.Pubkey, error) {
	addr, _, err := common.FindAssociatedTokenAddress(owner.ToCommon(), mint.ToCommon())
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive ata owner=%s mint=%s: %w", owner, mint, err)
	}
	return types.FromCommon(addr), nil
}

// Ensure 已存在则原样返回（幂等，无副作用）；不存在则提交创建交易并等待确认
func (p *Provisioner) Ensure(ctx context.Context, owner, mint types.Pubkey) (Result, error) {
	addr, err := Derive(owner, mint)
	if err != nil {
		return Result{}, &ProvisionError{Owner: owner, Mint: mint, Err: err}
	}

	info, err := p.ledger.GetAccount(ctx, addr)
	if err != nil {
		return Result{}, &ProvisionError{Owner: owner, Mint: mint, Address: addr, Err: err}
	}
	if info != nil {
		if !tools.IsSPLTokenProgram(info.Owner) {
			return Result{}, &ProvisionError{Owner: owner, Mint: mint, Address: addr,
				Err: fmt.Errorf("address occupied by non token account, owner=%s", info.Owner)}
		}
		logger.Debugf("[Provisioner] ATA 已存在: %s (owner=%s, mint=%s)", addr, owner, mint)
		return Result{Address: addr}, nil
	}

	ix := ata.Create(ata.CreateParam{
		Funder:                 p.payer.ToCommon(),
		Owner:                  owner.ToCommon(),
		Mint:                   mint.ToCommon(),
		AssociatedTokenAccount: addr.ToCommon(),
	})
	sig, err := p.ledger.SendAndConfirm(ctx, []sdktypes.Instruction{ix}, ledger.SendOptions{})
	if err != nil {
		return Result{}, &ProvisionError{Owner: owner, Mint: mint, Address: addr, Err: err}
	}
	logger.Infof("[Provisioner] 创建 ATA: %s (owner=%s, mint=%s), sig=%s", addr, owner, mint, sig)
	return Result{Address: addr, Created: true, Signature: sig}, nil
}
