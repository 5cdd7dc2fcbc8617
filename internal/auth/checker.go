package auth

import (
	"context"
	"sync"
)

var _ Authenticator = (*Service)(nil)
var _ Authenticator = (*StaticAuthenticator)(nil)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Claims, error)
}

// StaticAuthenticator accepts a fixed set of tokens. Used in dev mode and tests.
type StaticAuthenticator struct {
	mutex  sync.RWMutex
	tokens map[string]*Claims
}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{
		tokens: make(map[string]*Claims),
	}
}

func (a *StaticAuthenticator) Add(token string, claims *Claims) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.tokens[token] = claims
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (*Claims, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	claims, ok := a.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
