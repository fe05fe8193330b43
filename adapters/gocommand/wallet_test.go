package gocommand

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	wallet "github.com/goliatone/go-wallet"
	walletcommand "github.com/goliatone/go-wallet/command"
	"github.com/goliatone/go-wallet/core"
	walletquery "github.com/goliatone/go-wallet/query"
)

type walletServiceStub struct {
	logins int
	minted int
}

func (s *walletServiceStub) Start(context.Context) error { return nil }

func (s *walletServiceStub) Login(context.Context) error {
	s.logins++
	return nil
}

func (s *walletServiceStub) Logout(context.Context) error { return nil }

func (s *walletServiceStub) Refresh(context.Context) error { return nil }

func (s *walletServiceStub) RefreshBalance(context.Context) (uint64, error) { return 100, nil }

func (s *walletServiceStub) RefreshEligibility(context.Context) (bool, error) { return true, nil }

func (s *walletServiceStub) Mint(context.Context) (uint64, error) {
	s.minted++
	return 10, nil
}

func (s *walletServiceStub) Transfer(context.Context, core.TransferRequest) error { return nil }

func (s *walletServiceStub) TransferInput(context.Context, string, string) error { return nil }

func (s *walletServiceStub) Snapshot() core.WalletSnapshot {
	return core.WalletSnapshot{
		State:   core.StateLoggedIn,
		Session: core.Session{PrincipalID: "2vxsx-fae", Active: true},
		View:    core.WalletView{Balance: 110},
	}
}

func TestRegisterWallet_DispatchesCommandsAndQueries(t *testing.T) {
	svc := &walletServiceStub{}
	facade, err := wallet.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := NewRegistryAdapter(command.NewRegistry())
	subs, err := RegisterWallet(adapter, facade)
	if err != nil {
		t.Fatalf("register wallet: %v", err)
	}
	defer subs.Unsubscribe()
	if len(subs) != 11 {
		t.Fatalf("expected 11 subscriptions, got %d", len(subs))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), walletcommand.MintMessage{}); err != nil {
		t.Fatalf("dispatch mint: %v", err)
	}
	if svc.minted != 1 {
		t.Fatalf("expected mint to reach the service once, got %d", svc.minted)
	}

	snapshot, err := Query[walletquery.WalletSnapshotMessage, core.WalletSnapshot](context.Background(), walletquery.WalletSnapshotMessage{})
	if err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if snapshot.View.Balance != 110 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestRegisterWallet_RequiresFacade(t *testing.T) {
	if _, err := RegisterWallet(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected missing facade error")
	}
	if _, err := RegisterWallet(nil, &wallet.Facade{}); err == nil {
		t.Fatalf("expected missing registry error")
	}
}
