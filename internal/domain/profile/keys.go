package profile

import (
	"context"

	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/result"
)

// KeyReader is the part of ProfileRepository that user content encryption needs.
type KeyReader interface {
	GetByHdid(ctx context.Context, hdid string) (*UserProfile, error)
}

// CipherFor returns the cipher built from hdid's profile key.
func CipherFor(ctx context.Context, profiles KeyReader, hdid string) (*crypto.Cipher, error) {
	p, err := profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if p.EncryptionKey == "" {
		return nil, result.InvalidState("profile %s has no encryption key", hdid)
	}
	c, err := crypto.NewCipher(p.EncryptionKey)
	if err != nil {
		return nil, &result.Error{Kind: result.KindInvalidState, Service: result.ServiceGateway,
			Message: "profile encryption key is unusable", Err: err}
	}
	return c, nil
}
