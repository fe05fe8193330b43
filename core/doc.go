// Package core holds the wallet domain: the session state machine, the
// single-slot operation gate, the persisted session snapshot and the
// contracts for the identity, ledger and notification collaborators.
// Transport and storage adapters depend on this package, never the reverse.
package core
