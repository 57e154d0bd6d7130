package report

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordHook 拦截 pipeline，只记录命令参数，不连接 redis
type recordHook struct {
	cmds [][]interface{}
	err  error
}

func (h *recordHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (h *recordHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.cmds = append(h.cmds, cmd.Args())
		return h.err
	}
}

func (h *recordHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			h.cmds = append(h.cmds, cmd.Args())
		}
		return h.err
	}
}

func newRecordedSink(t *testing.T, ttl time.Duration) (*RedisSink, *recordHook) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	hook := &recordHook{}
	rdb.AddHook(hook)
	sink := newRedisSink(rdb, "hydra:test", ttl)
	t.Cleanup(sink.Close)
	return sink, hook
}

// hsetFields 把 hset 的 key/value 展开参数还原成 map
func hsetFields(t *testing.T, args []interface{}) map[string]interface{} {
	t.Helper()
	require.True(t, len(args) >= 2 && (len(args)-2)%2 == 0, "hset args: %v", args)
	fields := make(map[string]interface{}, (len(args)-2)/2)
	for i := 2; i < len(args); i += 2 {
		fields[args[i].(string)] = args[i+1]
	}
	return fields
}

func TestRedisSink_PublishPipeline(t *testing.T) {
	sink, hook := newRecordedSink(t, time.Hour)
	s := sampleSummary()
	s.RunID = "run-1"
	s.StartedAt = time.Unix(1700000000, 0)
	s.FinishedAt = time.Unix(1700000042, 0)

	require.NoError(t, sink.Publish(context.Background(), s))

	// multi, hset items, expire, hset counts, expire, exec
	require.Len(t, hook.cmds, 6)
	assert.Equal(t, "multi", hook.cmds[0][0])
	assert.Equal(t, "exec", hook.cmds[5][0])

	items := hook.cmds[1]
	assert.Equal(t, "hset", items[0])
	assert.Equal(t, "hydra:test:run:run-1", items[1])
	fields := hsetFields(t, items)
	require.Len(t, fields, 3)
	assert.Equal(t, "success|sig-1|", fields[itemField(s.Items[1])])
	assert.Equal(t, "failed||custom program error: 0x1771", fields[itemField(s.Items[2])])
	assert.Equal(t, "skipped||schema mismatch", fields[itemField(s.Items[0])])

	assert.Equal(t, []interface{}{"expire", "hydra:test:run:run-1", int64(3600)}, hook.cmds[2])

	counts := hook.cmds[3]
	assert.Equal(t, "hset", counts[0])
	assert.Equal(t, "hydra:test:run:run-1:counts", counts[1])
	assert.Equal(t, map[string]interface{}{
		"success":     1,
		"failed":      1,
		"skipped":     0,
		"started_at":  int64(1700000000),
		"finished_at": int64(1700000042),
		"aborted":     "",
	}, hsetFields(t, counts))

	assert.Equal(t, []interface{}{"expire", "hydra:test:run:run-1:counts", int64(3600)}, hook.cmds[4])
}

func TestRedisSink_PublishEmptyRun(t *testing.T) {
	sink, hook := newRecordedSink(t, 0)
	s := NewSummary()
	s.RunID = "empty"
	s.Aborted = "getProgramAccounts failed"

	require.NoError(t, sink.Publish(context.Background(), s))

	// 没有条目时只写统计 hash
	require.Len(t, hook.cmds, 4)
	assert.Equal(t, "hset", hook.cmds[1][0])
	assert.Equal(t, "hydra:test:run:empty:counts", hook.cmds[1][1])
	assert.Equal(t, "getProgramAccounts failed", hsetFields(t, hook.cmds[1])["aborted"])
	assert.Equal(t, []interface{}{"expire", "hydra:test:run:empty:counts", int64(defaultRunTTL / time.Second)}, hook.cmds[2])
}

func TestRedisSink_PublishError(t *testing.T) {
	sink, hook := newRecordedSink(t, time.Hour)
	hook.err = errors.New("connection refused")

	err := sink.Publish(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis pipeline error")
	assert.Contains(t, err.Error(), "connection refused")
}
