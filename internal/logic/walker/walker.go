package walker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/logic/derive"
	"hydra-fanout-sol/internal/logic/distribute"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/logic/provision"
	"hydra-fanout-sol/internal/logic/state"
	"hydra-fanout-sol/internal/report"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"
)

// Layout 各层账户的扫描签名：固定长度 + 回指父账户字段的偏移
type Layout struct {
	FanoutSize             uint64
	FanoutMintSize         uint64
	VoucherSize            uint64
	MintVoucherSize        uint64
	FanoutMintParentOffset uint64
	VoucherParentOffset    uint64
}

func DefaultLayout() Layout {
	return Layout{
		FanoutSize:             consts.FanoutAccountSize,
		FanoutMintSize:         consts.FanoutMintAccountSize,
		VoucherSize:            consts.MembershipVoucherSize,
		MintVoucherSize:        consts.MembershipMintVoucherSize,
		FanoutMintParentOffset: consts.FanoutMintParentOffset,
		VoucherParentOffset:    consts.VoucherParentOffset,
	}
}

type Options struct {
	Layout              Layout
	EnsurePayoutAccount bool // 分账前为成员创建收款 ATA
}

// Walker 自顶向下遍历 fanout → fanout_mint → voucher，并为每个成员提交一笔分账。
// 扫描失败立即中止；单个成员的开户 / 提交失败只记录，不影响其它成员。
type Walker struct {
	program     types.Pubkey
	scanner     *ledger.Scanner
	deriver     *derive.Deriver
	provisioner *provision.Provisioner
	builder     *distribute.Builder
	opt         Options
}

func NewWalker(
	program types.Pubkey,
	scanner *ledger.Scanner,
	deriver *derive.Deriver,
	provisioner *provision.Provisioner,
	builder *distribute.Builder,
	opt Options,
) *Walker {
	if opt.Layout == (Layout{}) {
		opt.Layout = DefaultLayout()
	}
	return &Walker{
		program:     program,
		scanner:     scanner,
		deriver:     deriver,
		provisioner: provisioner,
		builder:     builder,
		opt:         opt,
	}
}

// Run 执行一次完整遍历。返回的 summary 总是非 nil；
// error 非 nil 表示扫描失败提前中止，此前已提交的交易仍然有效。
func (w *Walker) Run(ctx context.Context) (*report.Summary, error) {
	summary := report.NewSummary()
	start := time.Now()

	fanouts, err := w.scanner.Scan(ctx, w.program, w.opt.Layout.FanoutSize, nil)
	if err != nil {
		return summary.Finish(err), fmt.Errorf("scan fanouts: %w", err)
	}
	logger.Infof("[Walker] 扫描到 %d 个 fanout 候选账户", len(fanouts))

	for _, raw := range fanouts {
		fanout, err := state.DecodeFanout(raw.Data)
		if err != nil {
			logger.Debugf("[Walker] 跳过非 fanout 账户 %s: %v", raw.Address, err)
			summary.Add(report.ItemResult{
				Level: report.LevelFanout, Fanout: raw.Address,
				Status: report.StatusSkipped, Reason: err.Error(),
			})
			continue
		}
		if err := w.walkFanout(ctx, summary, raw.Address, fanout); err != nil {
			return summary.Finish(err), err
		}
	}

	payouts := summary.Counts(report.LevelVoucher)
	logger.Infof("[Walker] 遍历完成, 成功 %d, 失败 %d, 跳过 %d, 耗时 %v",
		payouts.Success, payouts.Failed, payouts.Skipped, time.Since(start))
	return summary.Finish(nil), nil
}

func (w *Walker) walkFanout(ctx context.Context, summary *report.Summary, fanoutAddr types.Pubkey, fanout *state.Fanout) error {
	l := w.opt.Layout
	mints, err := w.scanner.Scan(ctx, w.program, l.FanoutMintSize, ledger.ParentFilter(l.FanoutMintParentOffset, fanoutAddr))
	if err != nil {
		return fmt.Errorf("scan fanout mints of %s: %w", fanoutAddr, err)
	}
	logger.Infof("[Walker] fanout %s (%s, model=%s), 子账本 %d 个",
		fanoutAddr, fanout.Name, fanout.Model(), len(mints))

	for _, raw := range mints {
		fm, err := state.DecodeFanoutMint(raw.Data)
		if err != nil {
			logger.Debugf("[Walker] 跳过非 fanout_mint 账户 %s: %v", raw.Address, err)
			summary.Add(report.ItemResult{
				Level: report.LevelFanoutMint, Fanout: fanoutAddr, FanoutMint: raw.Address,
				Status: report.StatusSkipped, Reason: err.Error(),
			})
			continue
		}
		if err := w.walkFanoutMint(ctx, summary, fanoutAddr, fanout, raw.Address, fm); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkFanoutMint(
	ctx context.Context,
	summary *report.Summary,
	fanoutAddr types.Pubkey,
	fanout *state.Fanout,
	fmAddr types.Pubkey,
	fm *state.FanoutMint,
) error {
	l := w.opt.Layout
	vouchers, err := w.scanner.Scan(ctx, w.program, l.VoucherSize, ledger.ParentFilter(l.VoucherParentOffset, fanoutAddr))
	if err != nil {
		return fmt.Errorf("scan vouchers of %s: %w", fanoutAddr, err)
	}
	logger.Debugf("[Walker] 子账本 %s (mint=%s), 成员 %d 个", fmAddr, fm.Mint, len(vouchers))

	for _, raw := range vouchers {
		if err := ctx.Err(); err != nil {
			return err
		}
		voucher, err := state.DecodeMembershipVoucher(raw.Data)
		if err != nil {
			logger.Debugf("[Walker] 跳过非 voucher 账户 %s: %v", raw.Address, err)
			summary.Add(report.ItemResult{
				Level: report.LevelVoucher, Fanout: fanoutAddr, FanoutMint: fmAddr, Mint: fm.Mint,
				Voucher: raw.Address, Status: report.StatusSkipped, Reason: err.Error(),
			})
			continue
		}
		summary.Add(w.payout(ctx, fanoutAddr, fanout, fmAddr, fm, raw.Address, voucher))
	}
	return nil
}

// payout 单个成员的 推导 → 开户 → 分账，错误都收敛在返回的 ItemResult 里
func (w *Walker) payout(
	ctx context.Context,
	fanoutAddr types.Pubkey,
	fanout *state.Fanout,
	fmAddr types.Pubkey,
	fm *state.FanoutMint,
	voucherAddr types.Pubkey,
	voucher *state.FanoutMembershipVoucher,
) report.ItemResult {
	item := report.ItemResult{
		Level:      report.LevelVoucher,
		Fanout:     fanoutAddr,
		FanoutMint: fmAddr,
		Mint:       fm.Mint,
		Voucher:    voucherAddr,
		Member:     voucher.MembershipKey,
	}
	fail := func(status report.Status, err error) report.ItemResult {
		item.Status = status
		item.Reason = err.Error()
		if status == report.StatusFailed {
			logger.Warnf("[Walker] 成员 %s 分账失败 (fanout_mint=%s): %v", voucher.MembershipKey, fmAddr, err)
		} else {
			logger.Infof("[Walker] 跳过成员 %s (fanout_mint=%s): %v", voucher.MembershipKey, fmAddr, err)
		}
		return item
	}

	targets, err := w.resolveTargets(fanoutAddr, fmAddr, fm, voucherAddr, voucher)
	if err != nil {
		return fail(report.StatusFailed, err)
	}

	acc, created, err := w.resolveMember(ctx, fanout, voucherAddr, voucher)
	item.Provisioned = append(item.Provisioned, created...)
	if err != nil {
		return fail(report.StatusFailed, err)
	}

	if w.opt.EnsurePayoutAccount {
		res, err := w.provisioner.Ensure(ctx, voucher.MembershipKey, fm.Mint)
		if err != nil {
			return fail(report.StatusFailed, err)
		}
		if res.Created {
			item.Provisioned = append(item.Provisioned, res.Address)
		}
	}

	plan, err := planFor(fanout, voucher.MembershipKey, acc)
	if err != nil {
		if errors.Is(err, distribute.ErrMissingMembershipMint) || errors.Is(err, distribute.ErrUnknownMembershipModel) {
			return fail(report.StatusSkipped, err)
		}
		return fail(report.StatusFailed, err)
	}

	sig, err := w.builder.Build(ctx, targets, plan)
	item.Signature = sig
	if err != nil {
		return fail(report.StatusFailed, err)
	}
	item.Status = report.StatusSuccess
	return item
}

// resolveTargets 纯计算：mint voucher PDA 与成员收款 ATA
func (w *Walker) resolveTargets(
	fanoutAddr, fmAddr types.Pubkey,
	fm *state.FanoutMint,
	voucherAddr types.Pubkey,
	voucher *state.FanoutMembershipVoucher,
) (distribute.Targets, error) {
	member := voucher.MembershipKey
	mintVoucher, err := w.deriver.MintVoucher(fmAddr, member, fm.Mint)
	if err != nil {
		return distribute.Targets{}, err
	}
	payout, err := provision.Derive(member, fm.Mint)
	if err != nil {
		return distribute.Targets{}, err
	}
	return distribute.Targets{
		Fanout:         fanoutAddr,
		FanoutMint:     fmAddr,
		Mint:           fm.Mint,
		HoldingAccount: fm.TokenAccount,
		Voucher:        voucherAddr,
		Member:         member,
		MintVoucher:    mintVoucher.Address,
		PayoutAccount:  payout,
	}, nil
}

// resolveMember fanout 带 membership mint 时：保证成员持有该 mint 的 ATA，并推导 voucher 名下的质押 ATA。
// 没有 membership mint 时两者都为空。
func (w *Walker) resolveMember(
	ctx context.Context,
	fanout *state.Fanout,
	voucherAddr types.Pubkey,
	voucher *state.FanoutMembershipVoucher,
) (distribute.MemberAccounts, []types.Pubkey, error) {
	if fanout.MembershipMint == nil || fanout.MembershipMint.IsZero() {
		return distribute.MemberAccounts{}, nil, nil
	}
	mint := *fanout.MembershipMint

	res, err := w.provisioner.Ensure(ctx, voucher.MembershipKey, mint)
	if err != nil {
		return distribute.MemberAccounts{}, nil, err
	}
	var created []types.Pubkey
	if res.Created {
		created = append(created, res.Address)
	}

	stake, err := provision.Derive(voucherAddr, mint)
	if err != nil {
		return distribute.MemberAccounts{}, created, err
	}
	tokenAccount := res.Address
	return distribute.MemberAccounts{TokenAccount: &tokenAccount, StakeAccount: &stake}, created, nil
}

func planFor(fanout *state.Fanout, member types.Pubkey, acc distribute.MemberAccounts) (distribute.Plan, error) {
	return distribute.NewPlan(fanout.Model(), fanout.MembershipMint, member, acc)
}
