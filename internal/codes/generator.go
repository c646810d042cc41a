package codes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// generateCode builds a candidate in the form PREFIX-XXXX-XXXX-XXXX. The
// blocks come from a fresh 128-bit random value rendered as uppercase hex,
// which keeps candidates collision-resistant without being guessable from
// prior codes. Global uniqueness is still enforced at insert time.
func generateCode(prefix string) (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(buf[:]))
	return fmt.Sprintf("%s-%s-%s-%s", prefix, h[0:4], h[4:8], h[8:12]), nil
}
