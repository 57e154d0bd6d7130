package report

import (
	"time"

	"hydra-fanout-sol/internal/types"

	"github.com/google/uuid"
)

// Status 单个条目的处理结果
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Level 条目所处的扫描层级
type Level string

const (
	LevelFanout     Level = "fanout"
	LevelFanoutMint Level = "fanout_mint"
	LevelVoucher    Level = "voucher"
)

// ItemResult 一次扫描条目的结构化结果，voucher 层级对应一次分账尝试
type ItemResult struct {
	Level       Level
	Fanout      types.Pubkey
	FanoutMint  types.Pubkey
	Mint        types.Pubkey
	Voucher     types.Pubkey
	Member      types.Pubkey
	Status      Status
	Reason      string
	Signature   string
	Provisioned []types.Pubkey // 本次新建的 ATA
}

// Subject 条目在其层级上的主地址
func (it ItemResult) Subject() types.Pubkey {
	switch it.Level {
	case LevelVoucher:
		return it.Voucher
	case LevelFanoutMint:
		return it.FanoutMint
	default:
		return it.Fanout
	}
}

type Counts struct {
	Success int
	Skipped int
	Failed  int
}

func (c Counts) Total() int {
	return c.Success + c.Skipped + c.Failed
}

// Summary 一次运行的汇总。扫描失败中止时 Aborted 记录原因，已提交的交易仍然有效。
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []ItemResult
	Aborted    string
}

func NewSummary() *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

func (s *Summary) Add(item ItemResult) {
	s.Items = append(s.Items, item)
}

// Finish 记录结束时间和中止原因（err 为 nil 表示正常结束）
func (s *Summary) Finish(err error) *Summary {
	s.FinishedAt = time.Now()
	if err != nil {
		s.Aborted = err.Error()
	}
	return s
}

// Counts 按状态统计；level 为空时统计全部层级
func (s *Summary) Counts(level Level) Counts {
	var c Counts
	for _, it := range s.Items {
		if level != "" && it.Level != level {
			continue
		}
		switch it.Status {
		case StatusSuccess:
			c.Success++
		case StatusSkipped:
			c.Skipped++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}
