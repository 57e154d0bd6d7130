package config

import (
	"testing"
	"time"

	"hydra-fanout-sol/internal/consts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/conf"
)

const sampleYaml = `
logger:
  format: json
  level: debug
rpc:
  endpoint: https://api.devnet.solana.com
  commitment: finalized
walk:
  ensure_payout_account: true
report:
  kafka:
    brokers: localhost:9092
    partitions: 4
  redis:
    addr: 127.0.0.1:6379
`

func TestLoadFromYaml(t *testing.T) {
	var c FanoutConfig
	require.NoError(t, conf.LoadFromYamlBytes([]byte(sampleYaml), &c))
	c.Normalize()

	assert.Equal(t, "json", c.LogConf.Format)
	assert.Equal(t, "debug", c.LogConf.Level)
	assert.Equal(t, "https://api.devnet.solana.com", c.Rpc.Endpoint)
	assert.Equal(t, "finalized", c.Rpc.Commitment)
	assert.Equal(t, 15000, c.Rpc.TimeoutMs)
	assert.Equal(t, 500, c.Rpc.PollIntervalMs)
	assert.True(t, c.Walk.EnsurePayoutAccount)

	assert.True(t, c.ReportConf.Kafka.Enabled())
	assert.Equal(t, "hydra-fanout-outcomes", c.ReportConf.Kafka.Topic)
	assert.Equal(t, 4, c.ReportConf.Kafka.Partitions)
	assert.True(t, c.ReportConf.Redis.Enabled())
	assert.Equal(t, "hydra:fanout", c.ReportConf.Redis.KeyPrefix)

	assert.Equal(t, consts.HydraProgramStr, c.Program.Hydra)
	assert.Equal(t, consts.FanoutAccountSize, c.Layout.FanoutSize)
	require.NoError(t, c.Check())
}

func TestLoadFromYaml_WithoutEndpoint(t *testing.T) {
	var c FanoutConfig
	// endpoint 由命令行补上，加载本身不应失败
	require.NoError(t, conf.LoadFromYamlBytes([]byte("rpc:\n  commitment: finalized\n"), &c))
	assert.Empty(t, c.Rpc.Endpoint)
	assert.Equal(t, "finalized", c.Rpc.Commitment)

	c.Normalize()
	assert.Error(t, c.Check())
	c.Rpc.Endpoint = "http://localhost:8899"
	assert.NoError(t, c.Check())
}

func TestNormalize_Defaults(t *testing.T) {
	c := FanoutConfig{}
	c.Normalize()

	assert.Equal(t, "console", c.LogConf.Format)
	assert.Equal(t, "info", c.LogConf.Level)
	assert.Equal(t, "confirmed", c.Rpc.Commitment)
	assert.Equal(t, LayoutConfig{
		FanoutSize:             300,
		FanoutMintSize:         200,
		VoucherSize:            153,
		MintVoucherSize:        105,
		FanoutMintParentOffset: 40,
		VoucherParentOffset:    8,
	}, c.Layout)
	assert.False(t, c.ReportConf.Kafka.Enabled())
	assert.False(t, c.ReportConf.Redis.Enabled())

	hydra, err := c.HydraProgram()
	require.NoError(t, err)
	assert.Equal(t, consts.HydraProgramStr, hydra.String())
}

func TestCheck(t *testing.T) {
	c := FanoutConfig{}
	c.Normalize()
	assert.Error(t, c.Check(), "missing endpoint")

	c.Rpc.Endpoint = "http://localhost:8899"
	require.NoError(t, c.Check())

	bad := c
	bad.Rpc.Commitment = "max"
	assert.Error(t, bad.Check())

	bad = c
	bad.Program.Hydra = "not-a-key"
	assert.Error(t, bad.Check())

	bad = c
	bad.Layout.FanoutMintParentOffset = 190
	assert.Error(t, bad.Check())
}

func TestConverters(t *testing.T) {
	c := FanoutConfig{Rpc: RpcConfig{
		Endpoint: "http://localhost:8899", Commitment: "confirmed",
		TimeoutMs: 2000, ConfirmTimeoutMs: 30000, PollIntervalMs: 250,
	}}
	opt := c.Rpc.ToSolanaOption()
	assert.Equal(t, 2*time.Second, opt.Timeout)
	assert.Equal(t, 30*time.Second, opt.ConfirmTimeout)
	assert.Equal(t, 250*time.Millisecond, opt.PollInterval)

	c.ReportConf.Redis.TTLSec = 60
	assert.Equal(t, time.Minute, c.ReportConf.Redis.ToRedisOption().TTL)

	c.ReportConf.Kafka = KafkaReportConfig{Brokers: "a:9092,b:9092", Topic: "t", Partitions: 3}
	k := c.ReportConf.Kafka.ToKafkaOption()
	assert.Equal(t, "a:9092,b:9092", k.Brokers)
	assert.Equal(t, 3, k.Partitions)
}
