// Package identity builds fully populated animal records from raw field
// tuples: deterministic hashing of alphanumeric identities, fixed-width
// padded keys, parent resolution, and synthetic allele minting.
package identity

import (
	"crypto/md5" // #nosec G501: non-cryptographic identity reduction
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	polyShift = 6
	// paddedKeyWidth is the width of the padding+identity+digit-count body of
	// PadKey, excluding the four-digit year prefix. Identities up to thirteen
	// digits fit exactly; wider identities extend past the target rather than
	// truncating.
	paddedKeyWidth = 15
)

// HashString reduces an alphanumeric identity to a deterministic non-negative
// integer using an MD5 digest. Collisions are accepted as a known limitation.
func HashString(s string) int {
	sum := md5.Sum([]byte(s)) // #nosec G401
	v := binary.BigEndian.Uint64(sum[:8]) & math.MaxInt64
	return int(v)
}

// PolyHash is the digest-free fallback: a rolling polynomial hash folding each
// character into the masked top bits of a 31-bit word. Exposed for parity
// checks against legacy data keyed by it.
func PolyHash(s string) int {
	mask := int64(-1) << (31 - polyShift)
	var result int64
	for _, r := range s {
		result = ((result & mask) ^ (result << polyShift) ^ int64(r)) & math.MaxInt64
	}
	return int(result)
}

// PadKey derives the fixed-width uniqueness token for an animal: a four-digit
// birth year followed by a fifteen-character body of zero padding, the
// original identity, and its digit count. The token orders identically to
// (birth year, identity) and seeds synthetic allele names.
func PadKey(originalID, birthYear int) string {
	id := strconv.Itoa(originalID)
	count := strconv.Itoa(len(id))
	pad := paddedKeyWidth - len(id) - len(count)
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%04d%s%s%s", birthYear, strings.Repeat("0", pad), id, count)
}
