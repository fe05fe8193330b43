package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-wallet/core"
)

// StaticAuthenticator always authenticates as the same principal. It keeps an
// in-process session flag so restore and logout behave like a real provider.
type StaticAuthenticator struct {
	mu        sync.Mutex
	principal string
	active    bool
	err       error
}

func NewStaticAuthenticator(principal string) *StaticAuthenticator {
	return &StaticAuthenticator{principal: strings.TrimSpace(principal)}
}

// Fail makes subsequent Authenticate calls return err; nil restores success.
func (a *StaticAuthenticator) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *StaticAuthenticator) Authenticate(context.Context, string) (core.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.active = true
	return core.PrincipalIdentity(a.principal), nil
}

func (a *StaticAuthenticator) CurrentIdentity(context.Context) (core.Identity, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return nil, false, nil
	}
	return core.PrincipalIdentity(a.principal), true, nil
}

func (a *StaticAuthenticator) EndSession(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
	return nil
}

var _ core.Authenticator = (*StaticAuthenticator)(nil)
