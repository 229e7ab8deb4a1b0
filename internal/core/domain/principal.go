package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// PrincipalLen is the byte length of a ledger address.
const PrincipalLen = 20

// Principal is an opaque 20-byte account identifier. The zero value is the
// null principal, which is never a valid transfer or mint recipient.
type Principal [PrincipalLen]byte

// ZeroPrincipal is the null principal.
var ZeroPrincipal Principal

// IsZero reports whether p is the null principal.
func (p Principal) IsZero() bool {
	return p == ZeroPrincipal
}

// Hex returns the 0x-prefixed lowercase hex encoding of p.
func (p Principal) Hex() string {
	return "0x" + hex.EncodeToString(p[:])
}

func (p Principal) String() string {
	return p.Hex()
}

// Bytes returns a copy of the raw address bytes.
func (p Principal) Bytes() []byte {
	b := make([]byte, PrincipalLen)
	copy(b, p[:])
	return b
}

// ParsePrincipal decodes a hex-encoded address, with or without the 0x prefix.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ZeroPrincipal, fmt.Errorf("decoding principal hex: %w", err)
	}
	return PrincipalFromBytes(raw)
}

// PrincipalFromBytes converts raw address bytes into a Principal.
func PrincipalFromBytes(b []byte) (Principal, error) {
	if len(b) != PrincipalLen {
		return ZeroPrincipal, fmt.Errorf("principal must be %d bytes, got %d", PrincipalLen, len(b))
	}
	var p Principal
	copy(p[:], b)
	return p, nil
}

// PrincipalFromPublicKey derives an address from a public key: the last 20
// bytes of the Keccak-256 digest of the key material.
func PrincipalFromPublicKey(pub []byte) Principal {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	digest := h.Sum(nil)

	var p Principal
	copy(p[:], digest[len(digest)-PrincipalLen:])
	return p
}
