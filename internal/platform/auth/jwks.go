package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultJWKSCacheTTL = 5 * time.Minute
	// An unknown kid refetches the key set at most once per interval.
	minJWKSRefreshInterval = 30 * time.Second
)

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jsonWebKey `json:"keys"`
}

type discoveryDocument struct {
	JWKSURI string `json:"jwks_uri"`
}

// JWKSCache holds the identity provider's RSA keys, refetching on TTL expiry
// or an unknown kid. Concurrent refetches share one request.
type JWKSCache struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	url        string
	ttl        time.Duration
	minRefresh time.Duration
	fetchedAt  time.Time
	client     *resty.Client
	group      singleflight.Group
}

func NewJWKSCache(url string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		keys:       make(map[string]*rsa.PublicKey),
		url:        url,
		ttl:        ttl,
		minRefresh: minJWKSRefreshInterval,
		client:     resty.New().SetTimeout(10 * time.Second),
	}
}

// DiscoverJWKSURL reads jwks_uri from the issuer's openid-configuration.
func DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	var doc discoveryDocument
	resp, err := resty.New().SetTimeout(10*time.Second).R().
		SetContext(ctx).
		SetResult(&doc).
		Get(strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration")
	if err != nil {
		return "", fmt.Errorf("openid discovery: %w", err)
	}
	if resp.IsError() || doc.JWKSURI == "" {
		return "", fmt.Errorf("openid discovery: status %d, jwks_uri %q", resp.StatusCode(), doc.JWKSURI)
	}
	return doc.JWKSURI, nil
}

func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	age := time.Since(c.fetchedAt)
	fetched := !c.fetchedAt.IsZero()
	c.mu.RUnlock()
	if ok && age <= c.ttl {
		return key, nil
	}
	if fetched && age < c.minRefresh {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("kid %q not in JWKS", kid)
	}

	if _, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	}); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok = c.keys[kid]; !ok {
		return nil, fmt.Errorf("kid %q not in JWKS", kid)
	}
	return key, nil
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	var doc jwksDocument
	resp, err := c.client.R().SetContext(ctx).SetResult(&doc).Get(c.url)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch JWKS: status %d", resp.StatusCode())
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		if pub, err := rsaKey(k); err == nil {
			keys[k.Kid] = pub
		}
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func rsaKey(k jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

func (c *JWKSCache) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return c.Key(ctx, kid)
	}
}
