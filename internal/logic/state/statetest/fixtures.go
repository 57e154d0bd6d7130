// Package statetest 构造 Hydra 账户原始数据，供各包测试使用
package statetest

import (
	"fmt"

	"hydra-fanout-sol/internal/logic/state"

	"github.com/near/borsh-go"
)

// Encode 按链上格式编码记录：discriminator + borsh body，并补零到 size（size<=0 时不补）
func Encode(schema state.Schema, record interface{}, size int) []byte {
	disc, ok := schema.Discriminator()
	if !ok {
		panic(fmt.Sprintf("statetest: unknown schema %d", int(schema)))
	}
	body, err := borsh.Serialize(record)
	if err != nil {
		panic(fmt.Sprintf("statetest: borsh serialize %T: %v", record, err))
	}
	data := append(disc[:], body...)
	if size > 0 {
		if len(data) > size {
			panic(fmt.Sprintf("statetest: %s encoded to %d bytes, larger than %d", schema, len(data), size))
		}
		data = append(data, make([]byte, size-len(data))...)
	}
	return data
}
