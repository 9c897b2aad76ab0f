// Package signature provides helper functions for handling the blockchain
// hashing needs.
package signature

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// hashLength is the length of an encoded hash: the 0x prefix plus
// 64 hex digits for the 32 byte digest.
const hashLength = 66

// =============================================================================

// Hash returns a unique string for the value. The value is serialized with
// the standard JSON encoding which writes struct fields in declaration order
// and sorts map keys, so the same value always produces the same hash.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// LeadingZeros returns the number of leading zero hex digits in the hash
// after the 0x prefix.
func LeadingZeros(hash string) int {
	digits := strings.TrimPrefix(hash, "0x")

	var n int
	for n < len(digits) && digits[n] == '0' {
		n++
	}

	return n
}

// IsSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsSolved(difficulty uint, hash string) bool {
	if len(hash) != hashLength {
		return false
	}

	return LeadingZeros(hash) >= int(difficulty)
}

// ValidateDifficulty checks the difficulty can be met by a hash.
func ValidateDifficulty(difficulty uint) error {
	if difficulty > hashLength-2 {
		return fmt.Errorf("difficulty %d exceeds the %d hex digits of a hash", difficulty, hashLength-2)
	}

	return nil
}

// DecodeSignature converts a hex encoded signature into its raw bytes. An
// empty string is a missing signature.
func DecodeSignature(sig string) ([]byte, error) {
	if sig == "" {
		return nil, nil
	}

	return hexutil.Decode(sig)
}

// SignatureString returns the signature as a hex string.
func SignatureString(sig []byte) string {
	if len(sig) == 0 {
		return ""
	}

	return hexutil.Encode(sig)
}
