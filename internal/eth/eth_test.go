package eth

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monpay/relayer/core"
)

func TestChallengeMessage(t *testing.T) {
	msg := ChallengeMessage("0xabc", "deadbeef")
	assert.Equal(t, "MonPay Authentication\nAddress: 0xabc\nNonce: deadbeef", msg)
}

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC")
	require.NoError(t, err)
	assert.Equal(t, "0xcccccccccccccccccccccccccccccccccccccccc", addr)

	_, err = NormalizeAddress("not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestRecoverPersonalSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	message := []byte(ChallengeMessage(strings.ToLower(want.Hex()), "0011223344556677"))
	sig, err := crypto.Sign(accounts.TextHash(message), key)
	require.NoError(t, err)

	got, err := RecoverPersonalSigner(message, sig)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("accepts legacy 27/28 recovery id", func(t *testing.T) {
		legacy := make([]byte, len(sig))
		copy(legacy, sig)
		legacy[crypto.RecoveryIDOffset] += 27

		got, err := RecoverPersonalSigner(message, legacy)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("rejects short signatures", func(t *testing.T) {
		_, err := RecoverPersonalSigner(message, sig[:10])
		assert.Error(t, err)
	})

	t.Run("different message recovers a different address", func(t *testing.T) {
		got, err := RecoverPersonalSigner([]byte("something else"), sig)
		if err == nil {
			assert.NotEqual(t, want, got)
		}
	})
}

func TestRequestDigest(t *testing.T) {
	domain := ForwarderDomain{
		Name:              "MonPayRelayer",
		Version:           "1",
		ChainID:           big.NewInt(10143),
		VerifyingContract: common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	digest := RequestDigest(domain, from, to, big.NewInt(0), 500000, 7, data)
	require.Len(t, digest, 32)

	t.Run("deterministic", func(t *testing.T) {
		again := RequestDigest(domain, from, to, big.NewInt(0), 500000, 7, data)
		assert.Equal(t, digest, again)
	})

	t.Run("sequence number changes the digest", func(t *testing.T) {
		other := RequestDigest(domain, from, to, big.NewInt(0), 500000, 8, data)
		assert.NotEqual(t, digest, other)
	})

	t.Run("sign and recover round trip", func(t *testing.T) {
		sig, err := crypto.Sign(digest, key)
		require.NoError(t, err)

		got, err := RecoverRequestSigner(digest, sig)
		require.NoError(t, err)
		assert.Equal(t, from, got)
	})
}
