package core

import "time"

// Account is the directory entry for a wallet address. The nonce is single-use:
// it is rotated every time a challenge is issued and consumed atomically when a
// signature over it verifies.
type Account struct {
	Address         string    // canonical lower-case hex address
	Nonce           string    // pending challenge nonce, hex-encoded
	NonceIssuedAt   time.Time // when the pending nonce was minted
	SessionIssuedAt time.Time // when the last session was issued
	CreatedAt       time.Time
}

// Challenge is what the authenticator hands back for the client to sign.
// Message must be byte-identical between issuance and verification.
type Challenge struct {
	Address  string
	Nonce    string
	Message  string
	IssuedAt time.Time
}

// Session represents an authenticated user session. Sessions are stateless:
// they live entirely inside the bearer credential and are never stored.
type Session struct {
	ID        string    // unique session identifier
	Address   string    // wallet address of the user
	IssuedAt  time.Time // when the session was created
	ExpiresAt time.Time // when the credential stops being accepted
}
