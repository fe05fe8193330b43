// Package ledgertest provides an in-memory ledger service with mint cooldown
// and supply cap rules, plus an HTTP handler speaking the ledger wire format.
package ledgertest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-wallet/core"
)

const (
	DefaultMintAmount = 10
	DefaultCooldown   = 24 * time.Hour
)

type Ledger struct {
	mu         sync.Mutex
	balances   map[string]uint64
	lastMint   map[string]time.Time
	supply     uint64
	supplyCap  uint64
	mintAmount uint64
	cooldown   time.Duration
	now        func() time.Time
}

type Option func(*Ledger)

func WithMintAmount(amount uint64) Option {
	return func(l *Ledger) { l.mintAmount = amount }
}

func WithCooldown(cooldown time.Duration) Option {
	return func(l *Ledger) { l.cooldown = cooldown }
}

// WithSupplyCap limits total supply; zero means unlimited.
func WithSupplyCap(limit uint64) Option {
	return func(l *Ledger) { l.supplyCap = limit }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		balances:   map[string]uint64{},
		lastMint:   map[string]time.Time{},
		mintAmount: DefaultMintAmount,
		cooldown:   DefaultCooldown,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Credit adds amount to principal and to the total supply.
func (l *Ledger) Credit(principalID string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[strings.TrimSpace(principalID)] += amount
	l.supply += amount
}

func (l *Ledger) BalanceOf(_ context.Context, principalID string) (uint64, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return 0, core.InvalidIdentity(principalID, "principal is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[principalID], nil
}

func (l *Ledger) CanMint(_ context.Context, principalID string) (bool, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return false, core.InvalidIdentity(principalID, "principal is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mintRejectionLocked(principalID) == "", nil
}

func (l *Ledger) TotalSupply(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply, nil
}

// MintFor mints the configured amount for caller.
func (l *Ledger) MintFor(_ context.Context, caller string) (uint64, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, core.InvalidIdentity(caller, "caller is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if reason := l.mintRejectionLocked(caller); reason != "" {
		return 0, core.NewLedgerError("mint", reason)
	}
	l.balances[caller] += l.mintAmount
	l.supply += l.mintAmount
	l.lastMint[caller] = l.now()
	return l.mintAmount, nil
}

// TransferFrom moves amount from caller to recipient.
func (l *Ledger) TransferFrom(_ context.Context, caller string, recipient string, amount uint64) error {
	caller = strings.TrimSpace(caller)
	recipient = strings.TrimSpace(recipient)
	if caller == "" {
		return core.InvalidIdentity(caller, "caller is required")
	}
	if recipient == "" || recipient == caller {
		return core.NewLedgerError("transfer", core.ReasonInvalidRecipient)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[caller] < amount {
		return core.NewLedgerError("transfer", core.ReasonInsufficientBalance)
	}
	l.balances[caller] -= amount
	l.balances[recipient] += amount
	return nil
}

func (l *Ledger) mintRejectionLocked(principalID string) string {
	if last, ok := l.lastMint[principalID]; ok && l.now().Before(last.Add(l.cooldown)) {
		return core.ReasonCooldownActive
	}
	if l.supplyCap > 0 && l.supply+l.mintAmount > l.supplyCap {
		return core.ReasonSupplyCapReached
	}
	return ""
}

// As returns a core.Ledger whose mint and transfer calls act for principalID.
func (l *Ledger) As(principalID string) core.Ledger {
	return boundLedger{ledger: l, caller: strings.TrimSpace(principalID)}
}

type boundLedger struct {
	ledger *Ledger
	caller string
}

func (b boundLedger) BalanceOf(ctx context.Context, principalID string) (uint64, error) {
	return b.ledger.BalanceOf(ctx, principalID)
}

func (b boundLedger) CanMint(ctx context.Context, principalID string) (bool, error) {
	return b.ledger.CanMint(ctx, principalID)
}

func (b boundLedger) Mint(ctx context.Context) (uint64, error) {
	return b.ledger.MintFor(ctx, b.caller)
}

func (b boundLedger) Transfer(ctx context.Context, recipient string, amount uint64) error {
	return b.ledger.TransferFrom(ctx, b.caller, recipient, amount)
}

func (b boundLedger) TotalSupply(ctx context.Context) (uint64, error) {
	return b.ledger.TotalSupply(ctx)
}
