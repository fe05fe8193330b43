package ledgertest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-wallet/core"
)

// Handler serves l over the ledger JSON wire format. The caller of mint and
// transfer is read from principalHeader.
func Handler(l *Ledger, principalHeader string) http.Handler {
	if strings.TrimSpace(principalHeader) == "" {
		principalHeader = "X-Wallet-Principal"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /balance/{principal}", func(w http.ResponseWriter, r *http.Request) {
		balance, err := l.BalanceOf(r.Context(), r.PathValue("principal"))
		respond(w, strconv.FormatUint(balance, 10), err)
	})
	mux.HandleFunc("GET /can-mint/{principal}", func(w http.ResponseWriter, r *http.Request) {
		canMint, err := l.CanMint(r.Context(), r.PathValue("principal"))
		respond(w, canMint, err)
	})
	mux.HandleFunc("GET /total-supply", func(w http.ResponseWriter, r *http.Request) {
		supply, err := l.TotalSupply(r.Context())
		respond(w, supply, err)
	})
	mux.HandleFunc("POST /mint", func(w http.ResponseWriter, r *http.Request) {
		minted, err := l.MintFor(r.Context(), r.Header.Get(principalHeader))
		respond(w, minted, err)
	})
	mux.HandleFunc("POST /transfer", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			To     string          `json:"to"`
			Amount json.RawMessage `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"err": "malformed-request"})
			return
		}
		amount, err := strconv.ParseUint(strings.Trim(string(body.Amount), "\" "), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"err": "malformed-request"})
			return
		}
		err = l.TransferFrom(r.Context(), r.Header.Get(principalHeader), body.To, amount)
		respond(w, nil, err)
	})
	return mux
}

func respond(w http.ResponseWriter, value any, err error) {
	var ledgerErr *core.LedgerError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": value})
	case errors.As(err, &ledgerErr):
		writeJSON(w, http.StatusOK, map[string]any{"err": ledgerErr.Reason})
	case errors.Is(err, core.ErrInvalidIdentity):
		writeJSON(w, http.StatusBadRequest, map[string]any{"err": "invalid-principal"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"err": "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
