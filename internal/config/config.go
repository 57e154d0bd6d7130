package config

import (
	"fmt"
	"time"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/mq"
	"hydra-fanout-sol/internal/report"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录，为空时只输出到控制台
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 相关配置；Endpoint 通常由命令行参数覆盖
type RpcConfig struct {
	Endpoint         string `json:"endpoint,optional"`
	Commitment       string `json:"commitment,default=confirmed"` // processed / confirmed / finalized
	TimeoutMs        int    `json:"timeout_ms,default=15000"`     // 单次 RPC 请求超时
	ConfirmTimeoutMs int    `json:"confirm_timeout_ms,default=60000"`
	PollIntervalMs   int    `json:"poll_interval_ms,default=500"` // 确认轮询间隔
}

func (c *RpcConfig) ToSolanaOption() ledger.SolanaOption {
	return ledger.SolanaOption{
		Endpoint:       c.Endpoint,
		Commitment:     c.Commitment,
		Timeout:        time.Duration(c.TimeoutMs) * time.Millisecond,
		ConfirmTimeout: time.Duration(c.ConfirmTimeoutMs) * time.Millisecond,
		PollInterval:   time.Duration(c.PollIntervalMs) * time.Millisecond,
	}
}

type ProgramConfig struct {
	Hydra string `json:"hydra,optional"` // 为空时使用主网 Hydra 程序地址
}

// LayoutConfig 账户大小与 memcmp 偏移，链上程序升级后可通过配置调整
type LayoutConfig struct {
	FanoutSize             uint64 `json:"fanout_size,default=300"`
	FanoutMintSize         uint64 `json:"fanout_mint_size,default=200"`
	VoucherSize            uint64 `json:"voucher_size,default=153"`
	MintVoucherSize        uint64 `json:"mint_voucher_size,default=105"`
	FanoutMintParentOffset uint64 `json:"fanout_mint_parent_offset,default=40"`
	VoucherParentOffset    uint64 `json:"voucher_parent_offset,default=8"`
}

type WalkConfig struct {
	EnsurePayoutAccount bool `json:"ensure_payout_account,optional"` // 分账前是否为成员创建收款 ATA
}

type KafkaReportConfig struct {
	Brokers       string `json:"brokers,optional"` // 为空表示不启用
	Topic         string `json:"topic,default=hydra-fanout-outcomes"`
	Partitions    int    `json:"partitions,default=1"`
	BatchSize     int    `json:"batch_size,optional"`
	LingerMs      int    `json:"linger_ms,default=5"`
	SendTimeoutMs int    `json:"send_timeout_ms,default=5000"`
}

func (c *KafkaReportConfig) Enabled() bool { return c.Brokers != "" }

func (c *KafkaReportConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:    c.Brokers,
		Topic:      c.Topic,
		Partitions: c.Partitions,
		BatchSize:  c.BatchSize,
		LingerMs:   c.LingerMs,
	}
}

type RedisReportConfig struct {
	Addr      string `json:"addr,optional"` // 为空表示不启用
	Password  string `json:"password,optional"`
	DB        int    `json:"db,optional"`
	KeyPrefix string `json:"key_prefix,default=hydra:fanout"`
	TTLSec    int    `json:"ttl_sec,default=604800"`
}

func (c *RedisReportConfig) Enabled() bool { return c.Addr != "" }

func (c *RedisReportConfig) ToRedisOption() report.RedisOption {
	return report.RedisOption{
		Addr:      c.Addr,
		Password:  c.Password,
		DB:        c.DB,
		KeyPrefix: c.KeyPrefix,
		TTL:       time.Duration(c.TTLSec) * time.Second,
	}
}

type ReportConfig struct {
	Kafka KafkaReportConfig `json:"kafka,optional"`
	Redis RedisReportConfig `json:"redis,optional"`
}

// FanoutConfig 主配置结构体
type FanoutConfig struct {
	LogConf    LogConfig     `json:"logger,optional"`
	Rpc        RpcConfig     `json:"rpc,optional"`
	Program    ProgramConfig `json:"program,optional"`
	Layout     LayoutConfig  `json:"layout,optional"`
	Walk       WalkConfig    `json:"walk,optional"`
	ReportConf ReportConfig  `json:"report,optional"`
}

// Normalize 补齐未经 conf 加载（直接构造）时缺失的默认值
func (c *FanoutConfig) Normalize() {
	if c.LogConf.Format == "" {
		c.LogConf.Format = "console"
	}
	if c.LogConf.Level == "" {
		c.LogConf.Level = "info"
	}
	if c.Rpc.Commitment == "" {
		c.Rpc.Commitment = "confirmed"
	}
	if c.Program.Hydra == "" {
		c.Program.Hydra = consts.HydraProgramStr
	}

	l := &c.Layout
	if l.FanoutSize == 0 {
		l.FanoutSize = consts.FanoutAccountSize
	}
	if l.FanoutMintSize == 0 {
		l.FanoutMintSize = consts.FanoutMintAccountSize
	}
	if l.VoucherSize == 0 {
		l.VoucherSize = consts.MembershipVoucherSize
	}
	if l.MintVoucherSize == 0 {
		l.MintVoucherSize = consts.MembershipMintVoucherSize
	}
	if l.FanoutMintParentOffset == 0 {
		l.FanoutMintParentOffset = consts.FanoutMintParentOffset
	}
	if l.VoucherParentOffset == 0 {
		l.VoucherParentOffset = consts.VoucherParentOffset
	}
}

// Check 检查必填项与地址格式。
// 不能命名为 Validate：conf.Load 会在加载阶段自动调用 Validate，而 endpoint 要到命令行覆盖之后才有值
func (c *FanoutConfig) Check() error {
	if c.Rpc.Endpoint == "" {
		return fmt.Errorf("rpc endpoint is required")
	}
	switch c.Rpc.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", c.Rpc.Commitment)
	}
	if _, err := c.HydraProgram(); err != nil {
		return err
	}
	l := c.Layout
	if l.FanoutMintParentOffset+32 > l.FanoutMintSize || l.VoucherParentOffset+32 > l.VoucherSize {
		return fmt.Errorf("layout parent offset out of account range")
	}
	return nil
}

func (c *FanoutConfig) HydraProgram() (types.Pubkey, error) {
	pk, err := types.TryPubkeyFromBase58(c.Program.Hydra)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("invalid hydra program id %q: %w", c.Program.Hydra, err)
	}
	return pk, nil
}
