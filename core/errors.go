package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WalletErrorInvalidIdentity      = "WALLET_INVALID_IDENTITY"
	WalletErrorRemoteUnavailable    = "WALLET_REMOTE_UNAVAILABLE"
	WalletErrorLedgerRejected       = "WALLET_LEDGER_REJECTED"
	WalletErrorOperationInProgress  = "WALLET_OPERATION_IN_PROGRESS"
	WalletErrorNotAuthenticated     = "WALLET_NOT_AUTHENTICATED"
	WalletErrorMintUnavailable      = "WALLET_MINT_UNAVAILABLE"
	WalletErrorInvalidAmount        = "WALLET_INVALID_AMOUNT"
	WalletErrorAuthenticationFailed = "WALLET_AUTHENTICATION_FAILED"
	WalletErrorBadInput             = "WALLET_BAD_INPUT"
	WalletErrorInternal             = "WALLET_INTERNAL_ERROR"
)

// Ledger rejection reasons reported by the ledger service. The list is not
// closed: unknown reasons are carried through verbatim.
const (
	ReasonCooldownActive      = "cooldown-active"
	ReasonSupplyCapReached    = "supply-cap-reached"
	ReasonInsufficientBalance = "insufficient-balance"
	ReasonInvalidRecipient    = "invalid-recipient"
)

var (
	ErrInvalidIdentity      = errors.New("core: invalid identity")
	ErrRemoteUnavailable    = errors.New("core: remote unavailable")
	ErrOperationInProgress  = errors.New("core: operation in progress")
	ErrNotAuthenticated     = errors.New("core: not authenticated")
	ErrMintUnavailable      = errors.New("core: mint unavailable")
	ErrInvalidAmount        = errors.New("core: invalid amount")
	ErrAuthenticationFailed = errors.New("core: authentication failed")
)

type IdentityError struct {
	Principal string
	Reason    string
}

func InvalidIdentity(principal string, reason string) error {
	return &IdentityError{Principal: principal, Reason: strings.TrimSpace(reason)}
}

func (e *IdentityError) Error() string {
	if e == nil {
		return ErrInvalidIdentity.Error()
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s %q", ErrInvalidIdentity.Error(), e.Principal)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidIdentity.Error(), e.Principal, e.Reason)
}

func (e *IdentityError) Unwrap() error {
	return ErrInvalidIdentity
}

func (e *IdentityError) ToServiceError() *goerrors.Error {
	err := newWalletError(e.Error(), goerrors.CategoryBadInput, WalletErrorInvalidIdentity)
	if e != nil && e.Reason != "" {
		err.WithMetadata(map[string]any{"reason": e.Reason})
	}
	return err
}

// RemoteError reports any transport level failure. Callers never see the
// concrete transport error kind, only that the remote was unavailable.
type RemoteError struct {
	Operation string
	Cause     error
}

func RemoteUnavailable(operation string, cause error) error {
	return &RemoteError{Operation: strings.TrimSpace(operation), Cause: cause}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ErrRemoteUnavailable.Error()
	}
	message := ErrRemoteUnavailable.Error()
	if e.Operation != "" {
		message += " during " + e.Operation
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *RemoteError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrRemoteUnavailable
	}
	return errors.Join(ErrRemoteUnavailable, e.Cause)
}

func (e *RemoteError) ToServiceError() *goerrors.Error {
	err := newWalletError(e.Error(), goerrors.CategoryExternal, WalletErrorRemoteUnavailable)
	if e != nil && e.Operation != "" {
		err.WithMetadata(map[string]any{"operation": e.Operation})
	}
	return err
}

// LedgerError is a server side rejection of an otherwise well formed call.
type LedgerError struct {
	Operation string
	Reason    string
}

func NewLedgerError(operation string, reason string) *LedgerError {
	return &LedgerError{
		Operation: strings.TrimSpace(operation),
		Reason:    strings.TrimSpace(reason),
	}
}

func (e *LedgerError) Error() string {
	if e == nil {
		return "core: ledger rejected operation"
	}
	op := e.Operation
	if op == "" {
		op = "operation"
	}
	if e.Reason == "" {
		return "core: ledger rejected " + op
	}
	return "core: ledger rejected " + op + ": " + e.Reason
}

func (e *LedgerError) ToServiceError() *goerrors.Error {
	err := newWalletError(e.Error(), goerrors.CategoryOperation, WalletErrorLedgerRejected)
	if e != nil {
		err.WithMetadata(map[string]any{"operation": e.Operation, "reason": e.Reason})
	}
	return err
}

func LedgerReason(err error) (string, bool) {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) && ledgerErr != nil {
		return ledgerErr.Reason, true
	}
	return "", false
}

type serviceErrorConverter interface {
	ToServiceError() *goerrors.Error
}

func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWalletErrorEnvelope(richErr)
	}

	var converter serviceErrorConverter
	if errors.As(err, &converter) && converter != nil {
		return ensureWalletErrorEnvelope(converter.ToServiceError())
	}

	switch {
	case errors.Is(err, ErrOperationInProgress):
		return newWalletError(err.Error(), goerrors.CategoryConflict, WalletErrorOperationInProgress)
	case errors.Is(err, ErrMintUnavailable):
		return newWalletError(err.Error(), goerrors.CategoryConflict, WalletErrorMintUnavailable)
	case errors.Is(err, ErrNotAuthenticated):
		return newWalletError(err.Error(), goerrors.CategoryAuth, WalletErrorNotAuthenticated)
	case errors.Is(err, ErrAuthenticationFailed):
		return newWalletError(err.Error(), goerrors.CategoryAuth, WalletErrorAuthenticationFailed)
	case errors.Is(err, ErrInvalidAmount):
		return newWalletError(err.Error(), goerrors.CategoryBadInput, WalletErrorInvalidAmount)
	case errors.Is(err, ErrInvalidIdentity):
		return newWalletError(err.Error(), goerrors.CategoryBadInput, WalletErrorInvalidIdentity)
	case errors.Is(err, ErrRemoteUnavailable):
		return newWalletError(err.Error(), goerrors.CategoryExternal, WalletErrorRemoteUnavailable)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWalletErrorEnvelope(mapped)
}

// ErrorCode returns the wallet text code for err, or "" for nil.
func ErrorCode(err error) string {
	mapped := MapError(err)
	if mapped == nil {
		return ""
	}
	return mapped.TextCode
}

func newWalletError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWalletErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureWalletErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = walletHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWalletTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWalletTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WalletErrorBadInput
	case goerrors.CategoryAuth:
		return WalletErrorNotAuthenticated
	case goerrors.CategoryConflict:
		return WalletErrorOperationInProgress
	case goerrors.CategoryOperation:
		return WalletErrorLedgerRejected
	case goerrors.CategoryExternal:
		return WalletErrorRemoteUnavailable
	default:
		return WalletErrorInternal
	}
}

func walletHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
