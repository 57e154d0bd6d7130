// Package ledgertest 提供内存版 Ledger，用于离线测试扫描 / 开户 / 分账流程
package ledgertest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

type programAccount struct {
	program types.Pubkey
	address types.Pubkey
	data    []byte
}

// ScanCall 记录一次 GetProgramAccounts 调用
type ScanCall struct {
	Program  types.Pubkey
	DataSize uint64
	Filter   *ledger.MemcmpFilter
}

type FakeLedger struct {
	mu sync.Mutex

	programAccounts []programAccount
	accounts        map[types.Pubkey]*ledger.AccountInfo

	// ScanHook 非 nil 且返回 error 时，该次扫描失败
	ScanHook func(call ScanCall) error
	// SendHook 非 nil 且返回 error 时，该笔交易提交失败（不会产生任何副作用）
	SendHook func(instructions []sdktypes.Instruction) error

	Scans       []ScanCall
	GetAccounts []types.Pubkey
	Sent        [][]sdktypes.Instruction
	SentOpts    []ledger.SendOptions
}

func New() *FakeLedger {
	return &FakeLedger{accounts: make(map[types.Pubkey]*ledger.AccountInfo)}
}

// AddProgramAccount 注册一个可被扫描到的程序账户
func (f *FakeLedger) AddProgramAccount(program, address types.Pubkey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.programAccounts = append(f.programAccounts, programAccount{program: program, address: address, data: data})
}

// AddAccount 注册一个可被 GetAccount 查到的账户
func (f *FakeLedger) AddAccount(info ledger.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := info
	f.accounts[info.Address] = &cp
}

func (f *FakeLedger) HasAccount(addr types.Pubkey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.accounts[addr]
	return ok
}

func (f *FakeLedger) GetAccount(_ context.Context, addr types.Pubkey) (*ledger.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetAccounts = append(f.GetAccounts, addr)
	info, ok := f.accounts[addr]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

func (f *FakeLedger) GetProgramAccounts(_ context.Context, program types.Pubkey, dataSize uint64, filter *ledger.MemcmpFilter) ([]ledger.RawAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := ScanCall{Program: program, DataSize: dataSize, Filter: filter}
	f.Scans = append(f.Scans, call)
	if f.ScanHook != nil {
		if err := f.ScanHook(call); err != nil {
			return nil, err
		}
	}

	var out []ledger.RawAccount
	for _, acc := range f.programAccounts {
		if acc.program != program || uint64(len(acc.data)) != dataSize {
			continue
		}
		if filter != nil {
			end := filter.Offset + uint64(len(filter.Bytes))
			if end > uint64(len(acc.data)) || !bytes.Equal(acc.data[filter.Offset:end], filter.Bytes) {
				continue
			}
		}
		out = append(out, ledger.RawAccount{Address: acc.address, Data: append([]byte(nil), acc.data...)})
	}
	return out, nil
}

// SendAndConfirm 成功时模拟链上副作用：ATA 创建指令会让目标账户变为存在
func (f *FakeLedger) SendAndConfirm(_ context.Context, instructions []sdktypes.Instruction, opts ledger.SendOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendHook != nil {
		if err := f.SendHook(instructions); err != nil {
			return "", err
		}
	}

	f.Sent = append(f.Sent, instructions)
	f.SentOpts = append(f.SentOpts, opts)

	for _, ix := range instructions {
		if types.FromCommon(ix.ProgramID) != consts.AssociatedTokenProgram || len(ix.Accounts) < 4 {
			continue
		}
		ata := types.FromCommon(ix.Accounts[1].PubKey)
		f.accounts[ata] = &ledger.AccountInfo{
			Address:  ata,
			Owner:    consts.TokenProgram,
			Lamports: 2039280,
			Data:     make([]byte, 165),
		}
	}
	return fakeSignature(len(f.Sent)), nil
}

// SentTo 返回发往指定程序的所有指令
func (f *FakeLedger) SentTo(program types.Pubkey) []sdktypes.Instruction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sdktypes.Instruction
	for _, ixs := range f.Sent {
		for _, ix := range ixs {
			if types.FromCommon(ix.ProgramID) == program {
				out = append(out, ix)
			}
		}
	}
	return out
}

func fakeSignature(n int) string {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(n))
	h1 := sha256.Sum256(seed[:])
	h2 := sha256.Sum256(h1[:])
	return base58.Encode(append(h1[:], h2[:]...))
}

// Key 测试用确定性公钥
func Key(label string) types.Pubkey {
	return types.Pubkey(sha256.Sum256([]byte(fmt.Sprintf("ledgertest:%s", label))))
}
