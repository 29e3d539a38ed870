package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monpay/relayer/adapters/store"
	"github.com/monpay/relayer/adapters/tokenizer"
	"github.com/monpay/relayer/core"
)

type authFixture struct {
	auth      *AuthService
	directory *store.MemoryDirectory
	key       *ecdsa.PrivateKey
	address   string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	walletKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	directory := store.NewMemoryDirectory()
	auth := NewAuthService(directory, &stubGateway{}, tokenizer.NewJWTTokenizer(signKey))

	return &authFixture{
		auth:      auth,
		directory: directory,
		key:       walletKey,
		address:   strings.ToLower(gethcrypto.PubkeyToAddress(walletKey.PublicKey).Hex()),
	}
}

func (f *authFixture) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := gethcrypto.Sign(accounts.TextHash([]byte(message)), f.key)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(sig)
}

func TestAuthService_IssueChallenge(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	first, err := f.auth.IssueChallenge(ctx, strings.ToUpper(f.address[2:]))
	require.NoError(t, err)
	assert.Equal(t, f.address, first.Address)
	assert.Len(t, first.Nonce, 32) // 16 random bytes, hex-encoded
	assert.Contains(t, first.Message, f.address)
	assert.Contains(t, first.Message, first.Nonce)

	second, err := f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)
	assert.NotEqual(t, first.Nonce, second.Nonce)

	t.Run("invalid address", func(t *testing.T) {
		_, err := f.auth.IssueChallenge(ctx, "not-hex")
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})
}

func TestAuthService_VerifyAndIssueSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	challenge, err := f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)

	signature := f.sign(t, challenge.Message)

	credential, session, err := f.auth.VerifyAndIssueSession(ctx, f.address, signature)
	require.NoError(t, err)
	require.NotEmpty(t, credential)
	assert.Equal(t, f.address, session.Address)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))

	t.Run("credential authenticates", func(t *testing.T) {
		addr, err := f.auth.Authenticate(credential)
		require.NoError(t, err)
		assert.Equal(t, f.address, addr)
	})

	t.Run("same signature is rejected on replay", func(t *testing.T) {
		_, _, err := f.auth.VerifyAndIssueSession(ctx, f.address, signature)
		assert.ErrorIs(t, err, core.ErrSignatureMismatch)
	})
}

func TestAuthService_Verify_NoPendingChallenge(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, _, err := f.auth.VerifyAndIssueSession(ctx, f.address, "0xdeadbeef")
	assert.ErrorIs(t, err, core.ErrNoPendingChallenge)
}

func TestAuthService_Verify_StaleNonce(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	first, err := f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)
	signature := f.sign(t, first.Message)

	// a second challenge invalidates the first nonce
	_, err = f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)

	_, _, err = f.auth.VerifyAndIssueSession(ctx, f.address, signature)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestAuthService_Verify_WrongSigner(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	challenge, err := f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)

	otherKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	sig, err := gethcrypto.Sign(accounts.TextHash([]byte(challenge.Message)), otherKey)
	require.NoError(t, err)

	_, _, err = f.auth.VerifyAndIssueSession(ctx, f.address, "0x"+hex.EncodeToString(sig))
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)

	t.Run("failed verification keeps the challenge pending", func(t *testing.T) {
		signature := f.sign(t, challenge.Message)
		_, _, err := f.auth.VerifyAndIssueSession(ctx, f.address, signature)
		assert.NoError(t, err)
	})
}

func TestAuthService_Verify_UndecodableSignature(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auth.IssueChallenge(ctx, f.address)
	require.NoError(t, err)

	_, _, err = f.auth.VerifyAndIssueSession(ctx, f.address, "0xzz")
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestAuthService_Authenticate_Invalid(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Authenticate("garbage")
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}
