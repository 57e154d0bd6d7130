package walker

import (
	"context"
	"fmt"

	"hydra-fanout-sol/internal/logic/state"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"
)

type MintVoucherRecord struct {
	Address types.Pubkey
	Record  *state.FanoutMembershipMintVoucher
}

// DumpMintVouchers 自底向上列出全部 FanoutMembershipMintVoucher，只读，不提交任何交易
func (w *Walker) DumpMintVouchers(ctx context.Context) ([]MintVoucherRecord, error) {
	accounts, err := w.scanner.Scan(ctx, w.program, w.opt.Layout.MintVoucherSize, nil)
	if err != nil {
		return nil, fmt.Errorf("scan mint vouchers: %w", err)
	}

	out := make([]MintVoucherRecord, 0, len(accounts))
	for _, raw := range accounts {
		rec, err := state.DecodeMintVoucher(raw.Data)
		if err != nil {
			logger.Debugf("[Walker] 跳过非 mint voucher 账户 %s: %v", raw.Address, err)
			continue
		}
		logger.Infof("[Walker] mint voucher %s\n%s", raw.Address, state.Dump(rec))
		out = append(out, MintVoucherRecord{Address: raw.Address, Record: rec})
	}
	logger.Infof("[Walker] mint voucher 共 %d 个 (候选 %d)", len(out), len(accounts))
	return out, nil
}
