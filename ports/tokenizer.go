package ports

import "github.com/monpay/relayer/core"

// Tokenizer converts sessions to and from bearer credentials. Credentials are
// self-verifying: nothing is stored server-side.
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
