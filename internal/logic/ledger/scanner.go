package ledger

import (
	"context"
	"fmt"
	"time"

	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"
)

// ScanError 扫描失败（网络、限流等），调用方视为致命错误
type ScanError struct {
	Program  types.Pubkey
	DataSize uint64
	Filter   *MemcmpFilter
	Err      error
}

func (e *ScanError) Error() string {
	if e.Filter != nil {
		return fmt.Sprintf("scan program=%s size=%d memcmp@%d: %v", e.Program, e.DataSize, e.Filter.Offset, e.Err)
	}
	return fmt.Sprintf("scan program=%s size=%d: %v", e.Program, e.DataSize, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Scanner 按账户布局签名（固定长度 + 可选 memcmp）扫描程序账户
type Scanner struct {
	ledger Ledger
}

func NewScanner(l Ledger) *Scanner {
	return &Scanner{ledger: l}
}

// Scan 单次请求，不重试；结果原样返回，不做二次过滤
func (s *Scanner) Scan(ctx context.Context, program types.Pubkey, dataSize uint64, filter *MemcmpFilter) ([]RawAccount, error) {
	start := time.Now()
	accounts, err := s.ledger.GetProgramAccounts(ctx, program, dataSize, filter)
	if err != nil {
		return nil, &ScanError{Program: program, DataSize: dataSize, Filter: filter, Err: err}
	}
	logger.Debugf("[Scanner] program=%s size=%d filtered=%t, 账户数: %d, 耗时: %v",
		program, dataSize, filter != nil, len(accounts), time.Since(start))
	return accounts, nil
}
