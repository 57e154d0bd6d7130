package consts

// Hydra 账户布局缺省值（账户总长度，含 8 字节 discriminator）
const (
	FanoutAccountSize          uint64 = 300
	FanoutMintAccountSize      uint64 = 200
	MembershipVoucherSize      uint64 = 32 + 8 + 8 + 1 + 32 + 8 + 64
	MembershipMintVoucherSize  uint64 = 32 + 32 + 8 + 1 + 32
	AccountDiscriminatorLength        = 8
)

// memcmp 过滤偏移：子账本 / 凭证中回指 fanout 的字段位置
const (
	FanoutMintParentOffset uint64 = 8 + 32 // mint 之后
	VoucherParentOffset    uint64 = 8      // 紧随 discriminator
)

// PDA 种子
const (
	MembershipSeed = "fanout-membership"
)
