package runtime

import (
	"crypto/sha256"
	"encoding/hex"
)

// Pubkey is a 32-byte account address.
type Pubkey [32]byte

// DerivePubkey returns the address obtained by hashing the given
// seed strings. The same seeds always produce the same address, which
// is what keeps fixture state byte-identical between runs.
func DerivePubkey(seeds ...string) Pubkey {
	h := sha256.New()
	for _, s := range seeds {
		h.Write([]byte(s))
	}
	var p Pubkey
	copy(p[:], h.Sum(nil))
	return p
}

func (p Pubkey) String() string {
	return hex.EncodeToString(p[:])
}

// Short returns an abbreviated form of the address for log lines.
func (p Pubkey) Short() string {
	return hex.EncodeToString(p[:4])
}

// IsZero reports whether p is the all-zero address.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// Well-known program addresses.
var (
	// SystemProgramID is the builtin system program (account creation,
	// lamport transfers).
	SystemProgramID = DerivePubkey("builtin", "system")

	// TokenProgramID is the builtin token program.
	TokenProgramID = DerivePubkey("builtin", "token")
)
