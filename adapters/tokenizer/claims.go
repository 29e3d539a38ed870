package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the registered claims carried by a session credential.
// The subject is the wallet address and the JWT ID is the session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}
