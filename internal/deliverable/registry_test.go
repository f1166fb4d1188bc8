package deliverable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditescrow/pkg/ids"
)

const protocolAddr = ids.Address("protocol")

func tokenID(n string) ids.TokenID {
	return GenerateID(ids.GenerateAuditID("auditee", []ids.Address{"a"}, 0, 1, "d", 1, "tok", n), []string{"f"})
}

func TestMintAndOwnership(t *testing.T) {
	r := NewRegistry(protocolAddr)
	id := tokenID("1")

	require.NoError(t, r.Mint(protocolAddr, "auditee", id))

	holder, err := r.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, ids.Address("auditee"), holder)
	assert.Equal(t, 1, r.BalanceOf("auditee"))

	byIndex, err := r.TokenOfOwnerByIndex("auditee", 0)
	require.NoError(t, err)
	assert.Equal(t, id, byIndex)
}

func TestMintGating(t *testing.T) {
	r := NewRegistry(protocolAddr)
	id := tokenID("1")

	require.ErrorIs(t, r.Mint("mallory", "mallory", id), ErrNotOwner)
	require.NoError(t, r.Mint(protocolAddr, "auditee", id))
	require.ErrorIs(t, r.Mint(protocolAddr, "auditee", id), ErrTokenExists)
}

func TestBurn(t *testing.T) {
	r := NewRegistry(protocolAddr)
	id := tokenID("1")
	require.NoError(t, r.Mint(protocolAddr, "auditee", id))

	require.ErrorIs(t, r.Burn("mallory", id), ErrNotOwner)
	require.NoError(t, r.Burn(protocolAddr, id))

	_, err := r.OwnerOf(id)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, 0, r.BalanceOf("auditee"))

	require.ErrorIs(t, r.Burn(protocolAddr, id), ErrTokenNotFound)
}

func TestEnumerationOrder(t *testing.T) {
	r := NewRegistry(protocolAddr)
	first, second := tokenID("1"), tokenID("2")
	require.NoError(t, r.Mint(protocolAddr, "auditee", first))
	require.NoError(t, r.Mint(protocolAddr, "auditee", second))

	got0, err := r.TokenOfOwnerByIndex("auditee", 0)
	require.NoError(t, err)
	got1, err := r.TokenOfOwnerByIndex("auditee", 1)
	require.NoError(t, err)
	assert.Equal(t, first, got0)
	assert.Equal(t, second, got1)

	_, err = r.TokenOfOwnerByIndex("auditee", 2)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTransferOwnership(t *testing.T) {
	r := NewRegistry(protocolAddr)
	require.ErrorIs(t, r.TransferOwnership("mallory", "mallory"), ErrNotOwner)
	require.NoError(t, r.TransferOwnership(protocolAddr, "protocol-v2"))
	assert.Equal(t, ids.Address("protocol-v2"), r.Owner())

	require.ErrorIs(t, r.Mint(protocolAddr, "auditee", tokenID("1")), ErrNotOwner)
	require.NoError(t, r.Mint("protocol-v2", "auditee", tokenID("1")))
}
