package wallet

import (
	"github.com/goliatone/go-wallet/core"
	"github.com/goliatone/go-wallet/identity"
	"github.com/goliatone/go-wallet/ledger"
)

func HTTPLedger(baseURL string, opts ...ledger.Option) (*ledger.Client, error) {
	return ledger.NewClient(baseURL, opts...)
}

func SessionAuthenticator(cfg identity.Config) *identity.SessionAuthenticator {
	return identity.NewSessionAuthenticator(cfg)
}

func StaticAuthenticator(principal string) *identity.StaticAuthenticator {
	return identity.NewStaticAuthenticator(principal)
}

// CanonicalPrincipals checks the textual principal checksum on top of syntax.
func CanonicalPrincipals() core.PrincipalValidator {
	return identity.CanonicalPrincipalValidator{}
}
