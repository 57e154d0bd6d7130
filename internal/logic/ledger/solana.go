package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"hydra-fanout-sol/internal/types"
	"hydra-fanout-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
)

var ErrConfirmTimeout = errors.New("transaction confirmation timeout")

type SolanaOption struct {
	Endpoint       string
	Commitment     string        // processed / confirmed / finalized
	Timeout        time.Duration // 单次 RPC 超时
	ConfirmTimeout time.Duration // 等待确认的总时长
	PollInterval   time.Duration // 签名状态轮询间隔
}

// SolanaLedger 基于 solana-go-sdk 的 Ledger 实现，payer 同时是手续费账户与唯一签名者
type SolanaLedger struct {
	client         *client.Client
	payer          sdktypes.Account
	commitment     rpc.Commitment
	timeout        time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

func NewSolanaLedger(opt SolanaOption, payer sdktypes.Account) (*SolanaLedger, error) {
	if opt.Endpoint == "" {
		return nil, errors.New("empty rpc endpoint")
	}
	c := client.NewClient(opt.Endpoint)
	if c == nil {
		return nil, errors.New("rpc client init failed")
	}

	l := &SolanaLedger{
		client:         c,
		payer:          payer,
		commitment:     rpc.CommitmentConfirmed,
		timeout:        opt.Timeout,
		confirmTimeout: opt.ConfirmTimeout,
		pollInterval:   opt.PollInterval,
	}
	switch opt.Commitment {
	case "", string(rpc.CommitmentConfirmed):
	case string(rpc.CommitmentProcessed):
		l.commitment = rpc.CommitmentProcessed
	case string(rpc.CommitmentFinalized):
		l.commitment = rpc.CommitmentFinalized
	default:
		return nil, fmt.Errorf("unsupported commitment %q", opt.Commitment)
	}
	if l.timeout <= 0 {
		l.timeout = defaultTimeout
	}
	if l.confirmTimeout <= 0 {
		l.confirmTimeout = defaultConfirmTimeout
	}
	if l.pollInterval <= 0 {
		l.pollInterval = defaultPollInterval
	}
	return l, nil
}

func (l *SolanaLedger) Payer() types.Pubkey {
	return types.FromCommon(l.payer.PublicKey)
}

func (l *SolanaLedger) GetAccount(ctx context.Context, addr types.Pubkey) (*AccountInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	info, err := l.client.GetAccountInfoWithConfig(ctx, addr.String(), client.GetAccountInfoConfig{
		Commitment: l.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	// RPC 对不存在的账户返回 null，sdk 映射为零值
	if info.Owner == (common.PublicKey{}) && info.Lamports == 0 && len(info.Data) == 0 {
		return nil, nil
	}
	return &AccountInfo{
		Address:  addr,
		Owner:    types.FromCommon(info.Owner),
		Lamports: info.Lamports,
		Data:     info.Data,
	}, nil
}

func (l *SolanaLedger) GetProgramAccounts(ctx context.Context, program types.Pubkey, dataSize uint64, filter *MemcmpFilter) ([]RawAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	filters := []rpc.GetProgramAccountsConfigFilter{
		{DataSize: dataSize},
	}
	if filter != nil {
		filters = append(filters, rpc.GetProgramAccountsConfigFilter{
			MemCmp: &rpc.GetProgramAccountsConfigFilterMemCmp{
				Offset: filter.Offset,
				Bytes:  base58.Encode(filter.Bytes),
			},
		})
	}

	res, err := l.client.RpcClient.GetProgramAccountsWithConfig(ctx, program.String(), rpc.GetProgramAccountsConfig{
		Encoding:   rpc.AccountEncodingBase64,
		Commitment: l.commitment,
		Filters:    filters,
	})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts %s: %w", program, err)
	}
	if err := res.GetError(); err != nil {
		return nil, fmt.Errorf("getProgramAccounts %s: %w", program, err)
	}

	result := make([]RawAccount, 0, len(res.Result))
	for _, acc := range res.Result {
		addr, err := types.TryPubkeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("getProgramAccounts %s: %w", program, err)
		}
		data, err := decodeAccountData(acc.Account.Data)
		if err != nil {
			return nil, fmt.Errorf("getProgramAccounts %s: account %s: %w", program, addr, err)
		}
		result = append(result, RawAccount{Address: addr, Data: data})
	}
	return result, nil
}

// decodeAccountData 解析 RPC 返回的 ["<base64>", "base64"] 形式的账户数据
func decodeAccountData(raw any) ([]byte, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("unexpected account data shape %T", raw)
	}
	if enc, _ := pair[1].(string); enc != string(rpc.AccountEncodingBase64) {
		return nil, fmt.Errorf("unexpected account data encoding %v", pair[1])
	}
	encoded, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected account data payload %T", pair[0])
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode account data: %w", err)
	}
	return data, nil
}

// LatestBlockhash 获取最新 blockhash
func (l *SolanaLedger) LatestBlockhash(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	res, err := l.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return res.Blockhash, nil
}

func (l *SolanaLedger) SendAndConfirm(ctx context.Context, instructions []sdktypes.Instruction, opts SendOptions) (string, error) {
	blockhash, err := l.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: sdktypes.NewMessage(sdktypes.NewMessageParam{
			FeePayer:        l.payer.PublicKey,
			RecentBlockhash: blockhash,
			Instructions:    instructions,
		}),
		Signers: []sdktypes.Account{l.payer},
	})
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, l.timeout)
	sig, err := l.client.SendTransactionWithConfig(sendCtx, tx, client.SendTransactionConfig{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: l.commitment,
	})
	cancel()
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}

	if err := l.waitConfirmed(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// waitConfirmed 轮询签名状态直到达到 commitment、链上报错或超时。只查询，不会重发交易。
func (l *SolanaLedger) waitConfirmed(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		status, err := l.client.GetSignatureStatus(ctx, sig)
		if err != nil {
			logger.Debugf("[SolanaLedger] getSignatureStatus %s 失败: %v", sig, err)
		} else if status != nil {
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			if status.ConfirmationStatus != nil && l.reached(*status.ConfirmationStatus) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrConfirmTimeout, sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *SolanaLedger) reached(got rpc.Commitment) bool {
	switch l.commitment {
	case rpc.CommitmentFinalized:
		return got == rpc.CommitmentFinalized
	case rpc.CommitmentConfirmed:
		return got == rpc.CommitmentConfirmed || got == rpc.CommitmentFinalized
	default:
		return true
	}
}
