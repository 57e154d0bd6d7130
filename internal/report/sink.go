package report

import (
	"context"
	"strings"
	"time"

	"hydra-fanout-sol/pkg/logger"
)

// Sink 运行结果的发布目标。发布失败只记录日志，不影响已完成的链上操作。
type Sink interface {
	Name() string
	Publish(ctx context.Context, s *Summary) error
	Close()
}

func PublishAll(ctx context.Context, sinks []Sink, s *Summary) {
	for _, sink := range sinks {
		if err := sink.Publish(ctx, s); err != nil {
			logger.Errorf("[Report] %s 发布失败: run=%s, err=%v", sink.Name(), s.RunID, err)
		}
	}
}

func CloseAll(sinks []Sink) {
	for _, sink := range sinks {
		sink.Close()
	}
}

// LogSink 在控制台打印失败 / 跳过明细与统计
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, s *Summary) error {
	for _, it := range s.Items {
		switch it.Status {
		case StatusFailed:
			logger.Warnf("[Report] FAILED  %-11s %s member=%s mint=%s: %s",
				it.Level, it.Subject(), it.Member, it.Mint, it.Reason)
		case StatusSkipped:
			logger.Infof("[Report] SKIPPED %-11s %s: %s", it.Level, it.Subject(), it.Reason)
		}
	}

	all := s.Counts("")
	payouts := s.Counts(LevelVoucher)
	logger.Infof("[Report] run=%s 耗时 %v | payouts: success=%d failed=%d skipped=%d | items total=%d skipped=%d",
		s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond), payouts.Success, payouts.Failed, payouts.Skipped,
		all.Total(), all.Skipped)
	if s.Aborted != "" {
		logger.Errorf("[Report] run=%s 扫描失败，提前中止: %s", s.RunID, strings.TrimSpace(s.Aborted))
	}
	return nil
}

func (LogSink) Close() {}
