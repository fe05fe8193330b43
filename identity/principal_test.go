package identity

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goliatone/go-wallet/core"
)

func TestEncodePrincipal_KnownValues(t *testing.T) {
	cases := map[string][]byte{
		"2vxsx-fae":                   {0x04},
		"aaaaa-aa":                    {},
		"rrkah-fqaaa-aaaaa-aaaaq-cai": {0, 0, 0, 0, 0, 0, 0, 1, 1, 1},
	}
	for want, raw := range cases {
		if got := EncodePrincipal(raw); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
		decoded, err := DecodePrincipal(want)
		if err != nil {
			t.Fatalf("decode %s: %v", want, err)
		}
		if !bytes.Equal(decoded, raw) {
			t.Fatalf("expected raw %x for %s, got %x", raw, want, decoded)
		}
	}
}

func TestCanonicalPrincipalValidator_RejectsNonCanonical(t *testing.T) {
	validator := CanonicalPrincipalValidator{}
	invalid := []string{
		"",
		"alice",
		"2vxsx-fab",
		"2vxs-xfae",
		"RRKAH-FQAAA-AAAAA-AAAAQ-CAI",
		"rrkah-fqaaa-aaaaa-aaaaq-cai ",
	}
	for _, principal := range invalid {
		if err := validator.ValidatePrincipal(principal); !errors.Is(err, core.ErrInvalidIdentity) {
			t.Fatalf("expected %q rejected, got %v", principal, err)
		}
	}
	if err := validator.ValidatePrincipal("2mhjn-ayaae-bagba-faydq-qcikb-mga2d-qpcai-reeyu-culbo-gazdi-nry"); err != nil {
		t.Fatalf("expected longest principal valid: %v", err)
	}
}
