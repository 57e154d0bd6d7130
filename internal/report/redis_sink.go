package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "hydra:fanout"
	defaultRunTTL    = 7 * 24 * time.Hour
)

type RedisOption struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisSink 把每次运行的逐条状态写入一个 hash，便于外部按 run 查询
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSink(opt RedisOption) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	return newRedisSink(rdb, opt.KeyPrefix, opt.TTL)
}

func newRedisSink(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSink {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultRunTTL
	}
	return &RedisSink{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl}
}

func (r *RedisSink) Name() string { return "redis" }

// runKey 条目明细 hash
func (r *RedisSink) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", r.prefix, runID)
}

// countsKey 统计 hash
func (r *RedisSink) countsKey(runID string) string {
	return fmt.Sprintf("%s:run:%s:counts", r.prefix, runID)
}

// itemField 同一 voucher 在不同子账本下各有一条记录
func itemField(it ItemResult) string {
	switch it.Level {
	case LevelVoucher:
		return fmt.Sprintf("%s:%s:%s", it.Level, it.FanoutMint, it.Voucher)
	case LevelFanoutMint:
		return fmt.Sprintf("%s:%s", it.Level, it.FanoutMint)
	default:
		return fmt.Sprintf("%s:%s", it.Level, it.Fanout)
	}
}

// itemValue 格式: status|signature|reason
func itemValue(it ItemResult) string {
	return fmt.Sprintf("%s|%s|%s", it.Status, it.Signature, it.Reason)
}

func (r *RedisSink) Publish(ctx context.Context, s *Summary) error {
	key := r.runKey(s.RunID)
	cKey := r.countsKey(s.RunID)

	fields := make(map[string]interface{}, len(s.Items))
	for _, it := range s.Items {
		fields[itemField(it)] = itemValue(it)
	}
	payouts := s.Counts(LevelVoucher)

	pipe := r.rdb.TxPipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, r.ttl)
	}
	pipe.HSet(ctx, cKey, map[string]interface{}{
		"success":     payouts.Success,
		"failed":      payouts.Failed,
		"skipped":     payouts.Skipped,
		"started_at":  s.StartedAt.Unix(),
		"finished_at": s.FinishedAt.Unix(),
		"aborted":     s.Aborted,
	})
	pipe.Expire(ctx, cKey, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline error: %w", err)
	}
	return nil
}

func (r *RedisSink) Close() {
	_ = r.rdb.Close()
}
