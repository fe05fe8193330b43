package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const maxPrincipalLength = 63

// SyntaxPrincipalValidator accepts lowercase textual principals made of
// [a-z0-9] groups joined by single dashes. It does not verify checksums; see
// identity.CanonicalPrincipalValidator for the strict textual encoding.
type SyntaxPrincipalValidator struct{}

func (SyntaxPrincipalValidator) ValidatePrincipal(principalID string) error {
	if principalID == "" || strings.TrimSpace(principalID) == "" {
		return InvalidIdentity(principalID, "principal is required")
	}
	if principalID != strings.TrimSpace(principalID) {
		return InvalidIdentity(principalID, "principal must not contain surrounding whitespace")
	}
	if len(principalID) > maxPrincipalLength {
		return InvalidIdentity(principalID, fmt.Sprintf("principal exceeds %d characters", maxPrincipalLength))
	}
	if strings.HasPrefix(principalID, "-") || strings.HasSuffix(principalID, "-") || strings.Contains(principalID, "--") {
		return InvalidIdentity(principalID, "principal has an empty group")
	}
	for _, r := range principalID {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return InvalidIdentity(principalID, fmt.Sprintf("principal contains invalid character %q", r))
		}
	}
	return nil
}

// ParseTransferAmount converts user input into the token's smallest unit.
func ParseTransferAmount(input string) (uint64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number of tokens", ErrInvalidAmount, trimmed)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	return amount, nil
}

func ValidateTransfer(req TransferRequest, validator PrincipalValidator) error {
	if strings.TrimSpace(req.Recipient) == "" {
		return InvalidIdentity(req.Recipient, "recipient is required")
	}
	if err := validatePrincipal(validator, req.Recipient); err != nil {
		return err
	}
	if req.Amount == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	return nil
}

func validatePrincipal(validator PrincipalValidator, principalID string) error {
	if validator == nil {
		validator = SyntaxPrincipalValidator{}
	}
	err := validator.ValidatePrincipal(principalID)
	if err == nil || errors.Is(err, ErrInvalidIdentity) {
		return err
	}
	return InvalidIdentity(principalID, err.Error())
}
