package provision_test

import (
	"context"
	"errors"
	"testing"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/logic/ledger"
	"hydra-fanout-sol/internal/logic/ledger/ledgertest"
	"hydra-fanout-sol/internal/logic/provision"
	"hydra-fanout-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_CreatesOnceThenReuses(t *testing.T) {
	fake := ledgertest.New()
	payer := ledgertest.Key("payer")
	owner := ledgertest.Key("member")
	mint := ledgertest.Key("mint")
	p := provision.NewProvisioner(fake, payer)

	first, err := p.Ensure(context.Background(), owner, mint)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.Signature)

	second, err := p.Ensure(context.Background(), owner, mint)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Address, second.Address)

	// 创建副作用最多一次
	require.Len(t, fake.Sent, 1)
	ix := fake.Sent[0][0]
	assert.Equal(t, consts.AssociatedTokenProgram, types.FromCommon(ix.ProgramID))
	assert.Equal(t, payer, types.FromCommon(ix.Accounts[0].PubKey))
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.Equal(t, first.Address, types.FromCommon(ix.Accounts[1].PubKey))
	// ATA 创建走正常预检
	assert.False(t, fake.SentOpts[0].SkipPreflight)
}

func TestEnsure_ExistingIsNoop(t *testing.T) {
	fake := ledgertest.New()
	owner := ledgertest.Key("member")
	mint := ledgertest.Key("mint")
	addr, err := provision.Derive(owner, mint)
	require.NoError(t, err)
	fake.AddAccount(ledger.AccountInfo{Address: addr, Owner: consts.TokenProgram, Lamports: 1})

	res, err := provision.NewProvisioner(fake, ledgertest.Key("payer")).Ensure(context.Background(), owner, mint)
	require.NoError(t, err)
	assert.Equal(t, addr, res.Address)
	assert.False(t, res.Created)
	assert.Empty(t, fake.Sent)
}

func TestEnsure_CreationFailure(t *testing.T) {
	fake := ledgertest.New()
	cause := errors.New("insufficient funds for rent")
	fake.SendHook = func([]sdktypes.Instruction) error { return cause }

	_, err := provision.NewProvisioner(fake, ledgertest.Key("payer")).
		Ensure(context.Background(), ledgertest.Key("member"), ledgertest.Key("mint"))
	require.Error(t, err)

	var perr *provision.ProvisionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ledgertest.Key("member"), perr.Owner)
	assert.ErrorIs(t, err, cause)
}

func TestEnsure_OccupiedByForeignAccount(t *testing.T) {
	fake := ledgertest.New()
	owner := ledgertest.Key("member")
	mint := ledgertest.Key("mint")
	addr, err := provision.Derive(owner, mint)
	require.NoError(t, err)
	fake.AddAccount(ledger.AccountInfo{Address: addr, Owner: consts.SystemProgram, Lamports: 1})

	_, err = provision.NewProvisioner(fake, ledgertest.Key("payer")).Ensure(context.Background(), owner, mint)
	var perr *provision.ProvisionError
	assert.True(t, errors.As(err, &perr))
	assert.Empty(t, fake.Sent)
}

func TestDerive_Deterministic(t *testing.T) {
	a, err := provision.Derive(ledgertest.Key("member"), ledgertest.Key("mint"))
	require.NoError(t, err)
	b, err := provision.Derive(ledgertest.Key("member"), ledgertest.Key("mint"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := provision.Derive(ledgertest.Key("mint"), ledgertest.Key("member"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
