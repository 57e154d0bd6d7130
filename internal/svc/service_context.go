package svc

import (
	"time"

	"hydra-fanout-sol/internal/config"
	"hydra-fanout-sol/internal/logic/derive"
	"hydra-fanout-sol/internal/logic/distribute"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/logic/provision"
	"hydra-fanout-sol/internal/logic/walker"
	"hydra-fanout-sol/internal/report"
	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// ServiceContext 一次运行所需的全部资源
type ServiceContext struct {
	Config config.FanoutConfig
	Payer  types.Pubkey
	Ledger *ledger.SolanaLedger
	Walker *walker.Walker
	Sinks  []report.Sink
}

// NewServiceContext 创建服务上下文。结果发布目标初始化失败只告警，不阻止分账。
func NewServiceContext(c config.FanoutConfig, payer sdktypes.Account) (*ServiceContext, error) {
	c.Normalize()
	if err := c.Check(); err != nil {
		return nil, err
	}
	hydra, err := c.HydraProgram()
	if err != nil {
		return nil, err
	}

	// 1. 初始化 Solana RPC
	sol, err := ledger.NewSolanaLedger(c.Rpc.ToSolanaOption(), payer)
	if err != nil {
		logger.Errorf("[Svc] Solana RPC 初始化失败: %v", err)
		return nil, err
	}
	payerKey := types.FromCommon(payer.PublicKey)

	// 2. 组装遍历器
	w := walker.NewWalker(
		hydra,
		ledger.NewScanner(sol),
		derive.NewDeriver(hydra),
		provision.NewProvisioner(sol, payerKey),
		distribute.NewBuilder(sol, payerKey, distribute.DefaultPrograms(hydra)),
		walker.Options{
			Layout: walker.Layout{
				FanoutSize:             c.Layout.FanoutSize,
				FanoutMintSize:         c.Layout.FanoutMintSize,
				VoucherSize:            c.Layout.VoucherSize,
				MintVoucherSize:        c.Layout.MintVoucherSize,
				FanoutMintParentOffset: c.Layout.FanoutMintParentOffset,
				VoucherParentOffset:    c.Layout.VoucherParentOffset,
			},
			EnsurePayoutAccount: c.Walk.EnsurePayoutAccount,
		},
	)

	// 3. 结果发布目标
	sinks := []report.Sink{report.LogSink{}}
	if kc := c.ReportConf.Kafka; kc.Enabled() {
		sink, err := report.NewKafkaSink(kc.ToKafkaOption(), time.Duration(kc.SendTimeoutMs)*time.Millisecond)
		if err != nil {
			logger.Warnf("[Svc] Kafka 发布初始化失败，跳过: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if rc := c.ReportConf.Redis; rc.Enabled() {
		sinks = append(sinks, report.NewRedisSink(rc.ToRedisOption()))
	}

	logger.Infof("[Svc] 服务上下文初始化完成: rpc=%s, program=%s, payer=%s, sinks=%d",
		c.Rpc.Endpoint, hydra, payerKey, len(sinks))
	return &ServiceContext{
		Config: c,
		Payer:  payerKey,
		Ledger: sol,
		Walker: w,
		Sinks:  sinks,
	}, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	report.CloseAll(ctx.Sinks)
}
