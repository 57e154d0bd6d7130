package derive

import (
	"testing"

	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hydra = types.PubkeyFromBase58(consts.HydraProgramStr)

func key(b byte) types.Pubkey {
	var p types.Pubkey
	p[0], p[31] = b, b
	return p
}

func TestDerive_Deterministic(t *testing.T) {
	d := NewDeriver(hydra)

	first, err := d.Derive(consts.MembershipSeed, key(1), key(2), key(3))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := d.Derive(consts.MembershipSeed, key(1), key(2), key(3))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// 另起一个 Deriver 也必须一致
	other, err := NewDeriver(hydra).MintVoucher(key(1), key(2), key(3))
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestDerive_MatchesSdk(t *testing.T) {
	d := NewDeriver(hydra)
	got, err := d.MintVoucher(key(1), key(2), key(3))
	require.NoError(t, err)

	k1, k2, k3 := key(1), key(2), key(3)
	addr, bump, err := common.FindProgramAddress(
		[][]byte{[]byte("fanout-membership"), k1[:], k2[:], k3[:]},
		hydra.ToCommon(),
	)
	require.NoError(t, err)
	assert.Equal(t, types.FromCommon(addr), got.Address)
	assert.Equal(t, bump, got.Bump)
}

func TestDerive_InputsMatter(t *testing.T) {
	d := NewDeriver(hydra)
	base, err := d.MintVoucher(key(1), key(2), key(3))
	require.NoError(t, err)

	swapped, err := d.MintVoucher(key(2), key(1), key(3))
	require.NoError(t, err)
	assert.NotEqual(t, base.Address, swapped.Address)

	otherProgram, err := NewDeriver(consts.TokenProgram).MintVoucher(key(1), key(2), key(3))
	require.NoError(t, err)
	assert.NotEqual(t, base.Address, otherProgram.Address)
}

func TestDerive_InvalidLabel(t *testing.T) {
	d := NewDeriver(hydra)

	_, err := d.Derive("", key(1), key(2), key(3))
	assert.ErrorIs(t, err, ErrInvalidSeed)

	_, err = d.Derive("this-seed-label-is-definitely-longer-than-32", key(1), key(2), key(3))
	assert.ErrorIs(t, err, ErrInvalidSeed)
}
