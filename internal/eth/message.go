package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/monpay/relayer/core"
)

// challengeTemplate is what the wallet signs during authentication. It must
// stay byte-identical between issuance and verification, since its hash is
// what gets signed.
const challengeTemplate = "MonPay Authentication\nAddress: %s\nNonce: %s"

// ChallengeMessage renders the deterministic challenge message for an
// address/nonce pair.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf(challengeTemplate, address, nonce)
}

// NormalizeAddress validates a hex address and returns its canonical
// lower-case form.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%q: %w", address, core.ErrInvalidAddress)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// RecoverPersonalSigner recovers the address that produced an EIP-191
// personal_sign signature over message. Both the 0/1 and 27/28 recovery id
// conventions are accepted.
func RecoverPersonalSigner(message, signature []byte) (common.Address, error) {
	return recoverFrom(accounts.TextHash(message), signature)
}

func recoverFrom(digest, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
