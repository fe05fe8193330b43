package identity

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/goliatone/go-wallet/core"
)

const (
	principalChecksumBytes = 4
	principalMaxBytes      = 29
	principalGroupSize     = 5
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CanonicalPrincipalValidator accepts only canonical textual principals:
// lowercase base32 of crc32(raw) followed by raw, in dash separated groups of
// five characters.
type CanonicalPrincipalValidator struct{}

func (CanonicalPrincipalValidator) ValidatePrincipal(principalID string) error {
	_, err := DecodePrincipal(principalID)
	return err
}

// DecodePrincipal returns the raw principal bytes of a canonical textual
// principal.
func DecodePrincipal(principalID string) ([]byte, error) {
	if err := (core.SyntaxPrincipalValidator{}).ValidatePrincipal(principalID); err != nil {
		return nil, err
	}
	compact := strings.ReplaceAll(principalID, "-", "")
	decoded, err := principalEncoding.DecodeString(strings.ToUpper(compact))
	if err != nil {
		return nil, core.InvalidIdentity(principalID, "principal is not base32")
	}
	if len(decoded) < principalChecksumBytes {
		return nil, core.InvalidIdentity(principalID, "principal is too short")
	}
	raw := decoded[principalChecksumBytes:]
	if len(raw) > principalMaxBytes {
		return nil, core.InvalidIdentity(principalID, fmt.Sprintf("principal exceeds %d bytes", principalMaxBytes))
	}
	if binary.BigEndian.Uint32(decoded[:principalChecksumBytes]) != crc32.ChecksumIEEE(raw) {
		return nil, core.InvalidIdentity(principalID, "principal checksum mismatch")
	}
	if EncodePrincipal(raw) != principalID {
		return nil, core.InvalidIdentity(principalID, "principal is not in canonical form")
	}
	return raw, nil
}

func EncodePrincipal(raw []byte) string {
	payload := make([]byte, principalChecksumBytes, principalChecksumBytes+len(raw))
	binary.BigEndian.PutUint32(payload, crc32.ChecksumIEEE(raw))
	payload = append(payload, raw...)
	encoded := strings.ToLower(principalEncoding.EncodeToString(payload))

	groups := make([]string, 0, len(encoded)/principalGroupSize+1)
	for start := 0; start < len(encoded); start += principalGroupSize {
		end := min(start+principalGroupSize, len(encoded))
		groups = append(groups, encoded[start:end])
	}
	return strings.Join(groups, "-")
}

var _ core.PrincipalValidator = CanonicalPrincipalValidator{}
