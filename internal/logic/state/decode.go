package state

import (
	"bytes"
	"errors"
	"fmt"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/tools"

	"github.com/near/borsh-go"
	"gopkg.in/yaml.v3"
)

var (
	ErrSchemaMismatch = errors.New("account schema mismatch")
	ErrUnknownSchema  = errors.New("unknown account schema")
)

// Schema 标识 Hydra 账户类型，名称即 Anchor 账户结构体名
type Schema int

const (
	SchemaFanout Schema = iota
	SchemaFanoutMint
	SchemaMembershipVoucher
	SchemaMembershipMintVoucher
)

var schemaNames = map[Schema]string{
	SchemaFanout:                "Fanout",
	SchemaFanoutMint:            "FanoutMint",
	SchemaMembershipVoucher:     "FanoutMembershipVoucher",
	SchemaMembershipMintVoucher: "FanoutMembershipMintVoucher",
}

// discriminators 启动时一次性计算
var discriminators = func() map[Schema][8]byte {
	m := make(map[Schema][8]byte, len(schemaNames))
	for s, name := range schemaNames {
		m[s] = tools.AccountDiscriminator(name)
	}
	return m
}()

func (s Schema) String() string {
	if name, ok := schemaNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Schema(%d)", int(s))
}

// Discriminator 返回账户数据前 8 字节的期望值
func (s Schema) Discriminator() ([8]byte, bool) {
	d, ok := discriminators[s]
	return d, ok
}

// Decode 按 schema 解码原始账户数据，返回对应记录的指针。
// 先校验 discriminator，不匹配时返回 ErrSchemaMismatch，绝不返回半解码的记录。
func Decode(data []byte, schema Schema) (interface{}, error) {
	switch schema {
	case SchemaFanout:
		return DecodeFanout(data)
	case SchemaFanoutMint:
		return DecodeFanoutMint(data)
	case SchemaMembershipVoucher:
		return DecodeMembershipVoucher(data)
	case SchemaMembershipMintVoucher:
		return DecodeMintVoucher(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, int(schema))
	}
}

func DecodeFanout(data []byte) (*Fanout, error) {
	return decodeAs[Fanout](data, SchemaFanout)
}

func DecodeFanoutMint(data []byte) (*FanoutMint, error) {
	return decodeAs[FanoutMint](data, SchemaFanoutMint)
}

func DecodeMembershipVoucher(data []byte) (*FanoutMembershipVoucher, error) {
	return decodeAs[FanoutMembershipVoucher](data, SchemaMembershipVoucher)
}

func DecodeMintVoucher(data []byte) (*FanoutMembershipMintVoucher, error) {
	return decodeAs[FanoutMembershipMintVoucher](data, SchemaMembershipMintVoucher)
}

func decodeAs[T any](data []byte, schema Schema) (rec *T, err error) {
	disc, ok := schema.Discriminator()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, int(schema))
	}
	if len(data) < consts.AccountDiscriminatorLength {
		return nil, fmt.Errorf("%w: want %s, data too short (%d bytes)", ErrSchemaMismatch, schema, len(data))
	}
	if !bytes.Equal(data[:consts.AccountDiscriminatorLength], disc[:]) {
		return nil, fmt.Errorf("%w: want %s, got discriminator %x", ErrSchemaMismatch, schema, data[:consts.AccountDiscriminatorLength])
	}

	// borsh-go 遇到截断数据可能 panic，这里兜底转成 error
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %s body corrupted: %v", ErrSchemaMismatch, schema, r)
		}
	}()

	var out T
	if err := borsh.Deserialize(&out, data[consts.AccountDiscriminatorLength:]); err != nil {
		return nil, fmt.Errorf("%w: %s body: %v", ErrSchemaMismatch, schema, err)
	}
	return &out, nil
}

// Dump 以 YAML 形式渲染记录，用于控制台打印
func Dump(record interface{}) string {
	out, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Sprintf("%+v", record)
	}
	return string(out)
}
