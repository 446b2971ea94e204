package license

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// watermarkLength is the hex length watermarks are truncated to. 128 bits
// of a SHA-256 digest, collision-resistant at issuance volume.
const watermarkLength = 32

// NewWatermark generates a unique per-issuance watermark for leak tracing.
// Input mixes the user id, a high-resolution timestamp, and random bytes so
// concurrent issuance for the same user still produces distinct values.
func NewWatermark(userID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate watermark nonce: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	h.Write(nonce)

	return hex.EncodeToString(h.Sum(nil))[:watermarkLength], nil
}
