package gateway

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/internal/eth"
	"github.com/monpay/relayer/ports"
)

// Minimal ABI fragments for the forwarder and subscription contracts.
const forwarderABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view",
	 "inputs":[{"name":"from","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"execute","stateMutability":"payable",
	 "inputs":[
		{"name":"req","type":"tuple","components":[
			{"name":"from","type":"address"},
			{"name":"to","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"gas","type":"uint256"},
			{"name":"nonce","type":"uint256"},
			{"name":"data","type":"bytes"}]},
		{"name":"signature","type":"bytes"}],
	 "outputs":[{"name":"","type":"bool"},{"name":"","type":"bytes"}]}
]`

const subscriptionABIJSON = `[
	{"type":"function","name":"chargeRenewal","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"subscriber","type":"address"},
		{"name":"planId","type":"uint256"},
		{"name":"months","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"subscriptions","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"},{"name":"","type":"uint256"}],
	 "outputs":[
		{"name":"planId","type":"uint256"},
		{"name":"subscriber","type":"address"},
		{"name":"expiresAt","type":"uint256"},
		{"name":"autoRenew","type":"bool"}]}
]`

// forwarderRequest mirrors the execute tuple of the forwarder ABI.
type forwarderRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   *big.Int
	Nonce *big.Int
	Data  []byte
}

// Config holds everything needed to talk to the chain.
type Config struct {
	ChainID              *big.Int
	ForwarderContract    common.Address
	SubscriptionContract common.Address
	ReceiptTimeout       time.Duration
}

// EthGateway implements the ExecutionGateway interface against an
// Ethereum-style JSON-RPC backend. The relayer key pays gas for every
// submitted action; the user's authorization travels in the envelope
// signature.
type EthGateway struct {
	client       *ethclient.Client
	forwarder    *bind.BoundContract
	subscription *bind.BoundContract
	signer       *bind.TransactOpts
	domain       eth.ForwarderDomain

	receiptTimeout time.Duration
}

// NewEthGateway creates a gateway bound to the given contracts, transacting
// with the relayer key.
func NewEthGateway(client *ethclient.Client, relayerKey *ecdsa.PrivateKey, cfg Config) (*EthGateway, error) {
	fwdABI, err := abi.JSON(strings.NewReader(forwarderABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse forwarder abi: %w", err)
	}
	subABI, err := abi.JSON(strings.NewReader(subscriptionABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse subscription abi: %w", err)
	}

	signer, err := bind.NewKeyedTransactorWithChainID(relayerKey, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &EthGateway{
		client:       client,
		forwarder:    bind.NewBoundContract(cfg.ForwarderContract, fwdABI, client, client, client),
		subscription: bind.NewBoundContract(cfg.SubscriptionContract, subABI, client, client, client),
		signer:       signer,
		domain: eth.ForwarderDomain{
			Name:              "MonPayRelayer",
			Version:           "1",
			ChainID:           cfg.ChainID,
			VerifyingContract: cfg.ForwarderContract,
		},
		receiptTimeout: timeout,
	}, nil
}

// GetSequence returns the forwarder's next-valid sequence number for an
// account.
func (g *EthGateway) GetSequence(ctx context.Context, address string) (uint64, error) {
	var out []interface{}
	err := g.forwarder.Call(&bind.CallOpts{Context: ctx}, &out, "getNonce", common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("getNonce call failed: %v: %w", err, core.ErrGatewayUnavailable)
	}
	seq, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected getNonce result type: %w", core.ErrGatewayUnavailable)
	}
	return seq.Uint64(), nil
}

// RecoverSigner recovers the personal-sign signer of a challenge message.
func (g *EthGateway) RecoverSigner(message, signature []byte) (string, error) {
	addr, err := eth.RecoverPersonalSigner(message, signature)
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Hex()), nil
}

// Submit verifies the envelope signature against its typed-data digest, then
// forwards it for execution and waits for a receipt.
func (g *EthGateway) Submit(ctx context.Context, env *core.RelayRequestEnvelope, signature []byte) (*ports.Receipt, error) {
	from := common.HexToAddress(env.From)
	to := common.HexToAddress(env.To)
	calldata := env.Payload.Call.Data

	digest := eth.RequestDigest(g.domain, from, to, env.Value, env.GasLimit, env.SequenceNumber, calldata)
	signer, err := eth.RecoverRequestSigner(digest, signature)
	if err != nil || signer != from {
		return nil, fmt.Errorf("envelope not signed by %s: %w", env.From, core.ErrSignatureMismatch)
	}

	req := forwarderRequest{
		From:  from,
		To:    to,
		Value: env.Value,
		Gas:   new(big.Int).SetUint64(env.GasLimit),
		Nonce: new(big.Int).SetUint64(env.SequenceNumber),
		Data:  calldata,
	}

	tx, err := g.forwarder.Transact(g.transactOpts(ctx, env.GasLimit), "execute", req, signature)
	if err != nil {
		return nil, fmt.Errorf("execute submission failed: %v: %w", err, core.ErrGatewayUnavailable)
	}

	return g.awaitReceipt(ctx, tx)
}

// ChargeRenewal bills one renewal period directly through the subscription
// contract.
func (g *EthGateway) ChargeRenewal(ctx context.Context, subscriber string, planID, months uint64) (*ports.Receipt, error) {
	tx, err := g.subscription.Transact(g.transactOpts(ctx, 0), "chargeRenewal",
		common.HexToAddress(subscriber),
		new(big.Int).SetUint64(planID),
		new(big.Int).SetUint64(months),
	)
	if err != nil {
		return nil, fmt.Errorf("chargeRenewal submission failed: %v: %w", err, core.ErrGatewayUnavailable)
	}

	return g.awaitReceipt(ctx, tx)
}

// SubscriptionState reads the authoritative on-chain subscription state.
func (g *EthGateway) SubscriptionState(ctx context.Context, subscriber string, planID uint64) (*ports.SubscriptionState, error) {
	var out []interface{}
	err := g.subscription.Call(&bind.CallOpts{Context: ctx}, &out, "subscriptions",
		common.HexToAddress(subscriber), new(big.Int).SetUint64(planID))
	if err != nil {
		return nil, fmt.Errorf("subscriptions call failed: %v: %w", err, core.ErrGatewayUnavailable)
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("unexpected subscriptions result arity %d: %w", len(out), core.ErrGatewayUnavailable)
	}

	expiresAt, ok := out[2].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected expiresAt type: %w", core.ErrGatewayUnavailable)
	}
	autoRenew, _ := out[3].(bool)

	return &ports.SubscriptionState{
		ExpiresAt: time.Unix(int64(expiresAt.Uint64()), 0).UTC(),
		AutoRenew: autoRenew,
	}, nil
}

func (g *EthGateway) transactOpts(ctx context.Context, gasLimit uint64) *bind.TransactOpts {
	opts := *g.signer
	opts.Context = ctx
	opts.GasLimit = gasLimit
	return &opts
}

// awaitReceipt blocks until the transaction is mined or the bounded wait
// elapses. On timeout the outcome is unknown and no status is invented.
func (g *EthGateway) awaitReceipt(ctx context.Context, tx *types.Transaction) (*ports.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, g.client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("tx %s: %w", tx.Hash().Hex(), core.ErrReceiptTimeout)
		}
		return nil, fmt.Errorf("wait for receipt: %v: %w", err, core.ErrGatewayUnavailable)
	}

	return &ports.Receipt{
		ID:      receipt.TxHash.Hex(),
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}

var _ ports.ExecutionGateway = (*EthGateway)(nil)
