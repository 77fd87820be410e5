// Package vault persists per-user side-channel values the client may need
// later: the Instagram access token, the Digits phone number. Writes are best
// effort; a vault failure never blocks token issuance.
package vault

import "context"

type Vault interface {
	Put(ctx context.Context, uid, field, value string) error
	Get(ctx context.Context, uid, field string) (string, bool, error)
}

// Noop se usa cuando no hay redis configurado.
type Noop struct{}

func (Noop) Put(context.Context, string, string, string) error { return nil }
func (Noop) Get(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}
