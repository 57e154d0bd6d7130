package utils

import (
	"testing"

	"hydra-fanout-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestPartitionOf(t *testing.T) {
	var key types.Pubkey
	for i := range key {
		key[i] = byte(i * 7)
	}

	assert.Equal(t, int32(0), PartitionOf(key, 0))
	assert.Equal(t, int32(0), PartitionOf(key, 1))
	for _, n := range []int{2, 3, 4, 7, 16} {
		p := PartitionOf(key, n)
		assert.GreaterOrEqual(t, p, int32(0))
		assert.Less(t, p, int32(n))
		assert.Equal(t, p, PartitionOf(key, n))
	}
	assert.Equal(t, int32(key[27]&3), PartitionOf(key, 4))
}

func TestEventCodec(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]interface{}{"status": "success", "shares": 50})
	require.NoError(t, err)

	data, err := EncodeEvent(7, msg)
	require.NoError(t, err)

	var got structpb.Struct
	eventType, err := DecodeEvent(data, &got)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), eventType)
	assert.Equal(t, "success", got.Fields["status"].GetStringValue())
	assert.Equal(t, float64(50), got.Fields["shares"].GetNumberValue())

	_, err = DecodeEvent([]byte{1, 2}, &got)
	assert.ErrorIs(t, err, ErrShortEvent)
}
