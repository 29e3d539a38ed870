package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/internal/eth"
	"github.com/monpay/relayer/ports"
)

const nonceBytes = 16

// AuthService handles the challenge-response authentication flow: it issues
// single-use nonces, verifies wallet signatures over them and mints
// time-bounded session credentials.
type AuthService struct {
	directory ports.AccountDirectory
	gateway   ports.ExecutionGateway
	tokenizer ports.Tokenizer

	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	directory ports.AccountDirectory,
	gateway ports.ExecutionGateway,
	tokenizer ports.Tokenizer,
) *AuthService {
	return &AuthService{
		directory:  directory,
		gateway:    gateway,
		tokenizer:  tokenizer,
		sessionTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
}

// IssueChallenge mints a fresh nonce for the address and returns the message
// the wallet must sign. The account is created lazily on first request; any
// prior unconsumed nonce is invalidated.
func (s *AuthService) IssueChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	addr, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	issuedAt := s.now()
	if err := s.directory.PutNonce(ctx, addr, nonce, issuedAt); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	return &core.Challenge{
		Address:  addr,
		Nonce:    nonce,
		Message:  eth.ChallengeMessage(addr, nonce),
		IssuedAt: issuedAt,
	}, nil
}

// VerifyAndIssueSession checks the signature over the pending challenge
// message and, on success, consumes the nonce and mints a session credential.
// The nonce is rotated even though a fresh session was just issued, so the
// same signature can never be replayed.
func (s *AuthService) VerifyAndIssueSession(ctx context.Context, address, signature string) (string, *core.Session, error) {
	addr, err := eth.NormalizeAddress(address)
	if err != nil {
		return "", nil, err
	}

	acct, err := s.directory.Get(ctx, addr)
	if err != nil || acct.Nonce == "" {
		return "", nil, fmt.Errorf("address %s: %w", addr, core.ErrNoPendingChallenge)
	}

	sig, err := decodeHex(signature)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode signature: %w", core.ErrSignatureMismatch)
	}

	message := eth.ChallengeMessage(addr, acct.Nonce)
	recovered, err := s.gateway.RecoverSigner([]byte(message), sig)
	if err != nil {
		return "", nil, fmt.Errorf("signature recovery failed: %w", core.ErrSignatureMismatch)
	}
	if !strings.EqualFold(recovered, addr) {
		return "", nil, fmt.Errorf("recovered %s, expected %s: %w", recovered, addr, core.ErrSignatureMismatch)
	}

	// Atomically rotate the nonce. If a concurrent verification got here
	// first, the pending nonce is gone and this attempt loses.
	next, err := newNonce()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	now := s.now()
	if err := s.directory.ConsumeNonce(ctx, addr, acct.Nonce, next, now); err != nil {
		return "", nil, err
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   addr,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	credential, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return credential, session, nil
}

// Authenticate validates a bearer credential and returns the address it is
// scoped to. Stateless: nothing is looked up server-side.
func (s *AuthService) Authenticate(credential string) (string, error) {
	session, err := s.tokenizer.TokenToSession(credential)
	if err != nil {
		return "", err
	}

	if s.now().After(session.ExpiresAt) {
		return "", core.ErrCredentialExpired
	}

	return session.Address, nil
}

func newNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
