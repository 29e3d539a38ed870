package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ForwarderDomain is the EIP-712 domain of the meta-transaction forwarder
// contract.
type ForwarderDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

var (
	domainTypeHash  = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	requestTypeHash = crypto.Keccak256([]byte("Request(address from,address to,uint256 value,uint256 gas,uint256 nonce,bytes data)"))
)

// Separator returns the EIP-712 domain separator.
func (d ForwarderDomain) Separator() []byte {
	return crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		abiUint(d.ChainID),
		abiAddress(d.VerifyingContract),
	)
}

// RequestDigest computes the typed-data digest a client signs to authorize a
// forwarder request: keccak256(0x1901 || domainSeparator || hashStruct(req)).
func RequestDigest(d ForwarderDomain, from, to common.Address, value *big.Int, gas, nonce uint64, data []byte) []byte {
	structHash := crypto.Keccak256(
		requestTypeHash,
		abiAddress(from),
		abiAddress(to),
		abiUint(value),
		abiUint(new(big.Int).SetUint64(gas)),
		abiUint(new(big.Int).SetUint64(nonce)),
		crypto.Keccak256(data),
	)
	return crypto.Keccak256([]byte("\x19\x01"), d.Separator(), structHash)
}

// RecoverRequestSigner recovers the address that signed a forwarder request
// digest.
func RecoverRequestSigner(digest, signature []byte) (common.Address, error) {
	return recoverFrom(digest, signature)
}

func abiAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func abiUint(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
